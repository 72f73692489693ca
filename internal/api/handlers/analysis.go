package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/internal/scanner"
	"github.com/wonny/helios/internal/store"
	"github.com/wonny/helios/pkg/logger"
)

// SymbolAnalyzer runs the full pipeline for one symbol
type SymbolAnalyzer interface {
	ScanSymbol(ctx context.Context, symbol string) (contracts.Analysis, error)
}

// SweepRunner runs the full universe sweep
type SweepRunner interface {
	Run(ctx context.Context) (scanner.Summary, error)
}

// RecommendationLister reads persisted recommendations
type RecommendationLister interface {
	ListRecent(ctx context.Context, symbol string, limit int) ([]store.StoredRecommendation, error)
}

// AnalysisHandler handles analysis API endpoints
// ⭐ SSOT: analysis API handlers live in this struct and nowhere else
type AnalysisHandler struct {
	analyzer SymbolAnalyzer
	sweeper  SweepRunner
	recs     RecommendationLister
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler. recs may be nil
// when the database is disabled.
func NewAnalysisHandler(analyzer SymbolAnalyzer, sweeper SweepRunner, recs RecommendationLister, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		sweeper:  sweeper,
		recs:     recs,
		logger:   log,
	}
}

type analyzeRequest struct {
	Symbol string `json:"symbol"`
}

// Analyze runs the pipeline for one symbol on demand
// POST /api/analyze {"symbol": "SPY"}
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	analysis, err := h.analyzer.ScanSymbol(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
		}).Error("Analysis failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

// Scan runs the full universe sweep synchronously and returns its
// summary counters
// POST /api/scan
func (h *AnalysisHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.sweeper.Run(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Sweep failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// ListRecommendations returns stored recommendations, newest first
// GET /api/recommendations?symbol=SPY&limit=20
func (h *AnalysisHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.recs == nil {
		respondError(w, http.StatusServiceUnavailable, "recommendation store is disabled")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	recs, err := h.recs.ListRecent(ctx, symbol, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list recommendations")
		respondError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// statusFor maps pipeline sentinel errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contracts.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

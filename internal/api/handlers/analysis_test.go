package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/internal/scanner"
	"github.com/wonny/helios/internal/store"
	"github.com/wonny/helios/pkg/logger"
)

type stubAnalyzer struct {
	analyses map[string]contracts.Analysis
	err      error
}

func (a *stubAnalyzer) ScanSymbol(_ context.Context, symbol string) (contracts.Analysis, error) {
	if a.err != nil {
		return contracts.Analysis{}, a.err
	}
	analysis, ok := a.analyses[symbol]
	if !ok {
		return contracts.Analysis{}, fmt.Errorf("%w: unknown symbol %s", contracts.ErrUpstream, symbol)
	}
	return analysis, nil
}

type stubSweeper struct {
	summary scanner.Summary
	err     error
}

func (s *stubSweeper) Run(context.Context) (scanner.Summary, error) {
	return s.summary, s.err
}

type stubLister struct {
	recs   []store.StoredRecommendation
	symbol string
	limit  int
}

func (l *stubLister) ListRecent(_ context.Context, symbol string, limit int) ([]store.StoredRecommendation, error) {
	l.symbol = symbol
	l.limit = limit
	return l.recs, nil
}

func newTestHandler(analyzer SymbolAnalyzer, sweeper SweepRunner, recs RecommendationLister) *AnalysisHandler {
	return NewAnalysisHandler(analyzer, sweeper, recs, logger.NewNop())
}

func TestAnalyze(t *testing.T) {
	analyzer := &stubAnalyzer{analyses: map[string]contracts.Analysis{
		"SPY": {
			Symbol:    "SPY",
			AsOf:      time.Now(),
			SpotPrice: 500,
			Score:     contracts.UnifiedScore{FinalProbability: 72.5},
		},
	}}
	h := newTestHandler(analyzer, nil, nil)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"symbol":"spy"}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var got contracts.Analysis
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Symbol != "SPY" || got.Score.FinalProbability != 72.5 {
		t.Errorf("analysis = %+v, want SPY at 72.5", got)
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	h := newTestHandler(&stubAnalyzer{}, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "{not json"},
		{"missing symbol", "{}"},
		{"blank symbol", `{"symbol":"  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Analyze(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", fmt.Errorf("bad strike: %w", contracts.ErrInvalidInput), http.StatusBadRequest},
		{"insufficient data", fmt.Errorf("thin tape: %w", contracts.ErrInsufficientData), http.StatusUnprocessableEntity},
		{"upstream down", fmt.Errorf("feed: %w", contracts.ErrUpstream), http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubAnalyzer{err: tt.err}, nil, nil)

			req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"symbol":"SPY"}`))
			rec := httptest.NewRecorder()
			h.Analyze(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestScan(t *testing.T) {
	sweeper := &stubSweeper{summary: scanner.Summary{
		Analyzed: 10,
		Alerted:  2,
		Failed:   1,
	}}
	h := newTestHandler(nil, sweeper, nil)

	req := httptest.NewRequest("POST", "/api/scan", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got scanner.Summary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Analyzed != 10 || got.Alerted != 2 || got.Failed != 1 {
		t.Errorf("summary = %+v", got)
	}
}

func TestScanEmptyUniverse(t *testing.T) {
	sweeper := &stubSweeper{err: fmt.Errorf("%w: empty universe", contracts.ErrInvalidInput)}
	h := newTestHandler(nil, sweeper, nil)

	req := httptest.NewRequest("POST", "/api/scan", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListRecommendations(t *testing.T) {
	lister := &stubLister{recs: []store.StoredRecommendation{
		{Symbol: "SPY", Strategy: "LONG_PUT", FinalProbability: 74},
		{Symbol: "AAPL", Strategy: "LONG_CALL", FinalProbability: 68},
	}}
	h := newTestHandler(nil, nil, lister)

	req := httptest.NewRequest("GET", "/api/recommendations?symbol=spy&limit=20", nil)
	rec := httptest.NewRecorder()
	h.ListRecommendations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if lister.symbol != "SPY" || lister.limit != 20 {
		t.Errorf("query passed as symbol=%q limit=%d, want SPY/20", lister.symbol, lister.limit)
	}

	var got struct {
		Recommendations []store.StoredRecommendation `json:"recommendations"`
		Count           int                          `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Count != 2 || len(got.Recommendations) != 2 {
		t.Errorf("count = %d with %d rows, want 2/2", got.Count, len(got.Recommendations))
	}
}

func TestListRecommendationsBadLimit(t *testing.T) {
	h := newTestHandler(nil, nil, &stubLister{})

	req := httptest.NewRequest("GET", "/api/recommendations?limit=-5", nil)
	rec := httptest.NewRecorder()
	h.ListRecommendations(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListRecommendationsStoreDisabled(t *testing.T) {
	h := newTestHandler(nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/recommendations", nil)
	rec := httptest.NewRecorder()
	h.ListRecommendations(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wonny/helios/internal/api/handlers"
	"github.com/wonny/helios/pkg/logger"
)

func TestHealthCheck(t *testing.T) {
	router := NewRouter(handlers.NewAnalysisHandler(nil, nil, nil, logger.NewNop()), logger.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := NewRouter(handlers.NewAnalysisHandler(nil, nil, nil, logger.NewNop()), logger.NewNop())

	req := httptest.NewRequest("GET", "/api/scan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

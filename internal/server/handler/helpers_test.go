package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/hallbid/auctiond/internal/domain"
)

func TestWriteDomainError_StatusMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("load team: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("place bid: %w", domain.ErrConflict), http.StatusConflict},
		{"invalid state", fmt.Errorf("pause: %w", domain.ErrInvalidState), http.StatusConflict},
		{"validation", fmt.Errorf("amount: %w", domain.ErrValidation), http.StatusBadRequest},
		{"rate limited", fmt.Errorf("throttled: %w", domain.ErrRateLimited), http.StatusTooManyRequests},
		{"settlement wraps not found", &domain.SettlementError{AuctionID: "a", Err: domain.ErrNotFound}, http.StatusNotFound},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			writeDomainError(rec, req, logger, tc.err, "operation failed")

			check.Equal(t, tc.wantStatus, rec.Code)
			check.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

			var body map[string]string
			check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
			check.True(t, body["error"] != "")
		})
	}
}

func TestWriteDomainError_HidesInternalDetail(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeDomainError(rec, req, logger, errors.New("pq: connection refused"), "operation failed")

	var body map[string]string
	check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	check.Equal(t, "operation failed", body["error"])
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"n": 3})

	check.Equal(t, http.StatusCreated, rec.Code)
	check.Equal(t, `{"n":3}`, rec.Body.String())
}

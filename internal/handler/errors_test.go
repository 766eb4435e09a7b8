package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"arkham-nexus/internal/transport/httpdto"
	"arkham-nexus/pkg/apperrors"
)

func TestRespondErrorTaxonomy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_REQUEST"},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"poll closed", apperrors.ErrPollClosed, http.StatusUnprocessableEntity, "POLL_CLOSED"},
		{"invalid transition", apperrors.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"already exists", apperrors.ErrAlreadyExists, http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tc.err)

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var resp httpdto.Response[any]
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Success {
				t.Fatalf("error response marked success")
			}
			if resp.Code != tc.code {
				t.Fatalf("code = %q, want %q", resp.Code, tc.code)
			}
		})
	}
}

func TestRespondErrorMasksInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	var resp httpdto.Response[any]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error != "internal error" {
		t.Fatalf("internal error leaked: %q", resp.Error)
	}
}

func TestParseDateAcceptsBothFormats(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)

	d, err := parseDate("2025-07-02", loc)
	if err != nil {
		t.Fatalf("plain date: %v", err)
	}
	if want := time.Date(2025, 7, 2, 0, 0, 0, 0, loc); !d.Equal(want) {
		t.Fatalf("plain date = %v, want %v", d, want)
	}

	d, err = parseDate("2025-07-02T19:00:00+09:00", loc)
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if want := time.Date(2025, 7, 2, 19, 0, 0, 0, loc); !d.Equal(want) {
		t.Fatalf("rfc3339 = %v, want %v", d, want)
	}

	if _, err := parseDate("02/07/2025", loc); err == nil {
		t.Fatalf("slash format accepted")
	}
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"arkham-nexus/internal/clock"
)

func TestAdvanceTimeOverride(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h := &SeriesHandler{clock: clock.Fixed{T: fixed}}

	t.Run("defaults to the clock", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/series/x/advance", nil)

		now, ok := h.advanceTime(c)
		if !ok {
			t.Fatalf("advanceTime failed on empty body")
		}
		if !now.Equal(fixed) {
			t.Fatalf("now = %v, want clock time %v", now, fixed)
		}
	})

	t.Run("honours the body override", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := strings.NewReader(`{"now":"2025-02-01T00:00:00Z"}`)
		req := httptest.NewRequest(http.MethodPost, "/series/x/advance", body)
		req.Header.Set("Content-Type", "application/json")
		c.Request = req

		now, ok := h.advanceTime(c)
		if !ok {
			t.Fatalf("advanceTime failed on valid body")
		}
		if want := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC); !now.Equal(want) {
			t.Fatalf("now = %v, want override %v", now, want)
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodPost, "/series/x/advance", strings.NewReader(`{"now":"next tuesday"}`))
		req.Header.Set("Content-Type", "application/json")
		c.Request = req

		if _, ok := h.advanceTime(c); ok {
			t.Fatalf("advanceTime accepted a malformed timestamp")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"perftrack/internal/domain/auth"
)

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	userCtx := context.WithValue(context.Background(), ctxKeyUser, auth.UserContext{
		UserID: "user-1",
		Role:   auth.RoleEmployee,
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/goals", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/goals", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by user key, got %d", secondRec.Code)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	first.RemoteAddr = "203.0.113.10:4444"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	second.RemoteAddr = "203.0.113.10:5555"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request throttled by IP, got %d", secondRec.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	limited := RateLimit(1, 10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
		r.RemoteAddr = "192.0.2.9:1000"
		return r
	}

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req())
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, req())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttle inside window, got %d", rec.Code)
	}

	time.Sleep(15 * time.Millisecond)
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, req())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected new window to admit the request, got %d", rec.Code)
	}
}

func TestLoginRateLimitKeysByEmail(t *testing.T) {
	limited := LoginRateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	login := func(email, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec
	}

	if rec := login("a@example.com", "203.0.113.20:1111"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first login attempt to pass, got %d", rec.Code)
	}
	// Same account from a different address is still throttled.
	if rec := login("a@example.com", "203.0.113.21:2222"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second attempt for the same email throttled, got %d", rec.Code)
	}
}

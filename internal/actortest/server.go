// Package actortest runs an in-process stand-in for the scraping actor's
// run-sync-get-dataset-items endpoint.
package actortest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Token is the bearer token the server accepts
const Token = "test-actor-token"

// MockActorServer serves per-identifier datasets with optional errors and
// delays
type MockActorServer struct {
	server       *httptest.Server
	requestCount int32
	rateLimited  int32

	mu        sync.RWMutex
	datasets  map[string][]map[string]interface{}
	errors    map[string]int
	delays    map[string]time.Duration
	received  []string
	rateLimit int32
}

// NewMockActorServer starts a server that answers for any actor id
func NewMockActorServer() *MockActorServer {
	m := &MockActorServer{
		datasets: make(map[string][]map[string]interface{}),
		errors:   make(map[string]int),
		delays:   make(map[string]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acts/", m.handleRun)
	m.server = httptest.NewServer(mux)
	return m
}

type runInput struct {
	Username     []string `json:"username"`
	ResultsLimit int      `json:"resultsLimit"`
}

func (m *MockActorServer) handleRun(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/run-sync-get-dataset-items") {
		m.sendError(w, http.StatusNotFound, "page-not-found", "route not found")
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+Token {
		m.sendError(w, http.StatusUnauthorized, "token-not-provided", "User was not found or authentication token is not valid")
		return
	}

	var in runInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Username) == 0 {
		m.sendError(w, http.StatusBadRequest, "invalid-input", "Input is not valid: field username is required")
		return
	}

	m.mu.Lock()
	m.received = append(m.received, in.Username...)
	m.mu.Unlock()

	if m.shouldRateLimit() {
		atomic.AddInt32(&m.rateLimited, 1)
		m.sendError(w, http.StatusTooManyRequests, "rate-limit-exceeded", "You have exceeded the rate limit")
		return
	}

	items := make([]map[string]interface{}, 0)
	for _, id := range in.Username {
		if delay := m.getDelay(id); delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if code := m.getError(id); code > 0 {
			m.sendError(w, code, "run-failed", fmt.Sprintf("Actor run failed for %s", id))
			return
		}
		items = append(items, m.getDataset(id)...)
	}

	if in.ResultsLimit > 0 && len(items) > in.ResultsLimit {
		items = items[:in.ResultsLimit]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// sendError writes the actor platform's error envelope
func (m *MockActorServer) sendError(w http.ResponseWriter, code int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

// SetDataset sets the items returned for identifier
func (m *MockActorServer) SetDataset(identifier string, items ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[identifier] = items
}

// SetErrorResponse makes requests for identifier fail with code
func (m *MockActorServer) SetErrorResponse(identifier string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[identifier] = code
}

// ClearErrorResponse removes the error configured for identifier
func (m *MockActorServer) ClearErrorResponse(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errors, identifier)
}

// SetDelay delays responses for identifier
func (m *MockActorServer) SetDelay(identifier string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[identifier] = delay
}

// RateLimitFirst answers the next n requests with 429
func (m *MockActorServer) RateLimitFirst(n int) {
	atomic.StoreInt32(&m.rateLimit, int32(n))
}

func (m *MockActorServer) shouldRateLimit() bool {
	for {
		left := atomic.LoadInt32(&m.rateLimit)
		if left <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&m.rateLimit, left, left-1) {
			return true
		}
	}
}

func (m *MockActorServer) getDataset(identifier string) []map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.datasets[identifier]
}

func (m *MockActorServer) getError(identifier string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors[identifier]
}

func (m *MockActorServer) getDelay(identifier string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.delays[identifier]
}

// URL returns the base URL of the server
func (m *MockActorServer) URL() string {
	return m.server.URL
}

// RequestCount returns the number of requests served
func (m *MockActorServer) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// RateLimitHits returns how many requests got a 429
func (m *MockActorServer) RateLimitHits() int {
	return int(atomic.LoadInt32(&m.rateLimited))
}

// Received returns the identifiers requested so far, in arrival order
func (m *MockActorServer) Received() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.received...)
}

// Close shuts down the server
func (m *MockActorServer) Close() {
	m.server.Close()
}

// Reel builds a dataset item for a reel posted at ts with views plays
func Reel(shortCode string, views int64, ts time.Time) map[string]interface{} {
	return map[string]interface{}{
		"type":           "Video",
		"productType":    "clips",
		"shortCode":      shortCode,
		"url":            "https://www.instagram.com/reel/" + shortCode + "/",
		"ownerUsername":  "owner_" + shortCode,
		"caption":        "caption " + shortCode,
		"videoPlayCount": views,
		"likesCount":     views / 10,
		"commentsCount":  views / 100,
		"timestamp":      ts.UTC().Format(time.RFC3339),
		"videoUrl":       "https://cdn.example.com/" + shortCode + ".mp4",
		"displayUrl":     "https://cdn.example.com/" + shortCode + ".jpg",
	}
}

// Photo builds a dataset item the ingest filter must drop
func Photo(shortCode string, ts time.Time) map[string]interface{} {
	return map[string]interface{}{
		"type":      "Image",
		"shortCode": shortCode,
		"url":       "https://www.instagram.com/p/" + shortCode + "/",
		"timestamp": ts.UTC().Format(time.RFC3339),
	}
}

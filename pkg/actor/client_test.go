package actor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelscraper/pkg/config"
	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
)

const datasetBody = `[
  {"type":"Video","url":"https://www.instagram.com/reel/u1/","shortCode":"u1","ownerUsername":"bluebottle",
   "videoPlayCount":120,"likesCount":10,"timestamp":"2024-05-01T10:00:00.000Z",
   "musicInfo":{"artist_name":"Artist","song_name":"Song","audio_id":"42"}},
  {"type":"Image","url":"https://www.instagram.com/p/x1/"}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tl := logger.NewTestLogger()
	c := NewClient(config.ActorConfig{
		Token:   "secret-token",
		ActorID: "apify~instagram-reel-scraper",
		BaseURL: srv.URL + "/",
		Timeout: 5 * time.Second,
	}, nil, tl)
	return c, tl
}

func TestInvokeSendsRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody runInput

	c, tl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(datasetBody))
	})

	items, err := c.Invoke(context.Background(), Request{Identifiers: []string{"coffee"}})
	require.NoError(t, err)

	assert.Equal(t, "/v2/acts/apify~instagram-reel-scraper/run-sync-get-dataset-items", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, []string{"coffee"}, gotBody.Username)
	assert.Equal(t, DefaultResultLimit, gotBody.ResultsLimit)

	require.Len(t, items, 2)
	assert.True(t, items[0].IsVideo())
	assert.False(t, items[1].IsVideo())
	assert.Equal(t, "Artist", items[0].Music.Artist)
	assert.NotEmpty(t, items[0].Raw)
	assert.True(t, tl.HasMessage("Actor invocation completed"))
}

func TestInvokeCustomLimit(t *testing.T) {
	var gotBody runInput
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`[]`))
	})

	items, err := c.Invoke(context.Background(), Request{Identifiers: []string{"a", "b"}, ResultLimit: 50})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 50, gotBody.ResultsLimit)
	assert.Equal(t, []string{"a", "b"}, gotBody.Username)
}

func TestInvokeStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errs.ErrorType
		wantMsg  string
	}{
		{"unauthorized", 401, `{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`, errs.ErrorTypeAuth, "Authentication token is not valid."},
		{"forbidden", 403, ``, errs.ErrorTypeAuth, "actor returned status 403"},
		{"missing actor", 404, `not found`, errs.ErrorTypeNotFound, "not found"},
		{"rate limited", 429, ``, errs.ErrorTypeRateLimit, ""},
		{"server error", 502, `bad gateway`, errs.ErrorTypeServerError, "bad gateway"},
		{"run timeout", 408, ``, errs.ErrorTypeTimeout, ""},
		{"other", 400, `{"error":{"message":"Input is not valid"}}`, errs.ErrorTypeUnknown, "Input is not valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c, tl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			items, err := c.Invoke(context.Background(), Request{Identifiers: []string{"coffee"}})
			require.Error(t, err)
			assert.Nil(t, items)
			assert.Equal(t, 1, calls, "actor calls must not be retried")

			var e *errs.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, "actor.invoke", e.Op)
			assert.Equal(t, tt.wantType, e.Type)
			assert.Equal(t, tt.status, e.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, e.Message)
			}
			assert.True(t, tl.HasError())
		})
	}
}

func TestInvokeBadJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})

	_, err := c.Invoke(context.Background(), Request{Identifiers: []string{"coffee"}})
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}

func TestInvokeTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, Request{Identifiers: []string{"coffee"}})
	assert.True(t, errs.Is(err, errs.ErrorTypeTimeout), "got %v", err)
}

func TestInvokeNetworkError(t *testing.T) {
	c := NewClient(config.ActorConfig{
		ActorID: "actor",
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	}, nil, logger.NewNopLogger())

	_, err := c.Invoke(context.Background(), Request{Identifiers: []string{"coffee"}})
	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork), "got %v", err)
}

func TestInvokeWithoutIdentifiers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.Invoke(context.Background(), Request{})
	assert.Error(t, err)
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Allow() bool { return true }
func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return nil
}
func (l *countingLimiter) Reset() {}

func TestInvokeWaitsOnLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	c := NewClient(config.ActorConfig{ActorID: "a", BaseURL: srv.URL}, limiter, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		_, err := c.Invoke(context.Background(), Request{Identifiers: []string{"x"}})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, limiter.waits)
}

package actor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelscraper/internal/actortest"
	"reelscraper/pkg/actor"
	"reelscraper/pkg/config"
	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
)

func mockClient(srv *actortest.MockActorServer, limit int) *actor.Client {
	return actor.NewClient(config.ActorConfig{
		BaseURL:     srv.URL(),
		ActorID:     "reel-scraper",
		Token:       actortest.Token,
		ResultLimit: limit,
	}, nil, logger.NewTestLogger())
}

func TestMockServerDataset(t *testing.T) {
	srv := actortest.NewMockActorServer()
	defer srv.Close()

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	srv.SetDataset("bluebottle",
		actortest.Reel("r1", 300, ts),
		actortest.Reel("r2", 20, ts),
		actortest.Photo("p1", ts),
	)

	items, err := mockClient(srv, 2).Invoke(context.Background(), actor.Request{Identifiers: []string{"bluebottle"}})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, items[0].IsVideo())
	views, ok := items[0].Views()
	assert.True(t, ok)
	assert.EqualValues(t, 300, views)
	published, ok := items[0].PublishedAt()
	assert.True(t, ok)
	assert.True(t, published.Equal(ts))
}

func TestMockServerRateLimit(t *testing.T) {
	srv := actortest.NewMockActorServer()
	defer srv.Close()
	srv.SetDataset("bluebottle", actortest.Reel("r1", 1, time.Now()))
	srv.RateLimitFirst(1)

	client := mockClient(srv, 0)
	req := actor.Request{Identifiers: []string{"bluebottle"}}

	_, err := client.Invoke(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeRateLimit, errs.TypeOf(err))
	assert.True(t, errs.IsRetryable(errs.TypeOf(err)))

	// the client does not retry on its own
	assert.Equal(t, 1, srv.RequestCount())
	assert.Equal(t, 1, srv.RateLimitHits())

	items, err := client.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMockServerCancelledRun(t *testing.T) {
	srv := actortest.NewMockActorServer()
	defer srv.Close()
	srv.SetDelay("slow", 2*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mockClient(srv, 0).Invoke(ctx, actor.Request{Identifiers: []string{"slow"}})
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTimeout, errs.TypeOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

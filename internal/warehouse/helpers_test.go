package warehouse

import (
	"log/slog"
	"time"

	"bq-bridge/internal/cache"
	"bq-bridge/internal/domain"
	"bq-bridge/internal/testutil"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestClient(svc *testutil.MockWarehouse, cfg Config) *Client {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	return New(svc, cache.New(cache.Config{}), cfg, slog.New(slog.DiscardHandler))
}

func notFound(id domain.TableID) error {
	return domain.ErrNotFound("table %s not found", id)
}

package ingest

import (
	"context"

	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/krobus00/tick-ingestor/internal/repository"
	"github.com/sirupsen/logrus"
)

// LatestPriceHook keeps the per-symbol latest-price cache in step with
// committed batches.
type LatestPriceHook struct {
	cache *repository.LatestPriceCache
}

func NewLatestPriceHook(cache *repository.LatestPriceCache) *LatestPriceHook {
	return &LatestPriceHook{cache: cache}
}

func (h *LatestPriceHook) BatchApplied(ctx context.Context, ops []entity.WriteOp) {
	// One write per symbol: only the newest datetime in the batch matters.
	newest := make(map[string]*entity.ContinuousContract)
	for _, op := range ops {
		if op.Kind != entity.WriteOpContinuous {
			continue
		}

		current, ok := newest[op.Continuous.Symbol]
		if !ok || op.Continuous.Datetime.After(current.Datetime) {
			newest[op.Continuous.Symbol] = op.Continuous
		}
	}

	for symbol, record := range newest {
		if err := h.cache.Set(ctx, record); err != nil {
			logrus.Warnf("update latest price cache for %s: %v", symbol, err)
		}
	}
}

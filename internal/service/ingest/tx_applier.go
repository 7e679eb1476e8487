package ingest

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/krobus00/tick-ingestor/internal/repository"
)

// TxApplier executes a batch of upserts inside a single transaction.
type TxApplier struct {
	db             *sqlx.DB
	rawRepo        *repository.RawContractRepository
	continuousRepo *repository.ContinuousContractRepository
}

func NewTxApplier(db *sqlx.DB, rawRepo *repository.RawContractRepository, continuousRepo *repository.ContinuousContractRepository) *TxApplier {
	return &TxApplier{
		db:             db,
		rawRepo:        rawRepo,
		continuousRepo: continuousRepo,
	}
}

func (a *TxApplier) Apply(ctx context.Context, ops []entity.WriteOp) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}

	for _, op := range ops {
		switch op.Kind {
		case entity.WriteOpRaw:
			err = a.rawRepo.Upsert(ctx, tx, op.Raw)
		case entity.WriteOpContinuous:
			err = a.continuousRepo.Upsert(ctx, tx, op.Continuous)
		default:
			err = fmt.Errorf("unknown write op kind %q", op.Kind)
		}

		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", op.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit batch: %w", err)
	}

	return nil
}

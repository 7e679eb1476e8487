package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/tick-ingestor/internal/entity"
)

type RawContractRepository struct {
	db *sqlx.DB
}

func NewRawContractRepository(db *sqlx.DB) *RawContractRepository {
	return &RawContractRepository{db: db}
}

// Upsert inserts the record or, on a (contract_id, datetime) conflict,
// overwrites the mutable fields in place. Last write wins, which keeps
// retried at-least-once delivery idempotent at the storage layer.
//
// ext is the statement runner, normally the batch writer's transaction.
func (r *RawContractRepository) Upsert(ctx context.Context, ext sqlx.ExtContext, data *entity.RawContract) error {
	if ext == nil {
		ext = r.db
	}

	query, args, err := rawContractUpsertSQL(data)
	if err != nil {
		return err
	}

	_, err = ext.ExecContext(ctx, query, args...)
	return err
}

func rawContractUpsertSQL(data *entity.RawContract) (string, []interface{}, error) {
	return sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(data.TableName()).
		Columns(
			"contract_id",
			"symbol",
			"expiry_date",
			"datetime",
			"price",
			"num_trades",
			"bid_volume",
			"ask_volume",
		).
		Values(
			data.ContractID,
			data.Symbol,
			data.ExpiryDate,
			data.Datetime,
			data.Price,
			data.NumTrades,
			data.BidVolume,
			data.AskVolume,
		).
		Suffix(`ON CONFLICT (contract_id, datetime)
DO UPDATE SET
	price = EXCLUDED.price,
	num_trades = EXCLUDED.num_trades,
	bid_volume = EXCLUDED.bid_volume,
	ask_volume = EXCLUDED.ask_volume`).
		ToSql()
}

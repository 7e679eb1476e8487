package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/tick-ingestor/internal/entity"
)

type ContinuousContractRepository struct {
	db *sqlx.DB
}

func NewContinuousContractRepository(db *sqlx.DB) *ContinuousContractRepository {
	return &ContinuousContractRepository{db: db}
}

// Upsert inserts the record or, on a (symbol, datetime) conflict, overwrites
// the mutable fields in place (last write wins).
func (r *ContinuousContractRepository) Upsert(ctx context.Context, ext sqlx.ExtContext, data *entity.ContinuousContract) error {
	if ext == nil {
		ext = r.db
	}

	query, args, err := continuousContractUpsertSQL(data)
	if err != nil {
		return err
	}

	_, err = ext.ExecContext(ctx, query, args...)
	return err
}

func continuousContractUpsertSQL(data *entity.ContinuousContract) (string, []interface{}, error) {
	return sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(data.TableName()).
		Columns(
			"symbol",
			"datetime",
			"price",
			"volume",
			"num_trades",
			"bid_volume",
			"ask_volume",
			"active_contract_id",
			"rollover_flag",
		).
		Values(
			data.Symbol,
			data.Datetime,
			data.Price,
			data.Volume,
			data.NumTrades,
			data.BidVolume,
			data.AskVolume,
			data.ActiveContractID,
			data.RolloverFlag,
		).
		Suffix(`ON CONFLICT (symbol, datetime)
DO UPDATE SET
	price = EXCLUDED.price,
	volume = EXCLUDED.volume,
	num_trades = EXCLUDED.num_trades,
	bid_volume = EXCLUDED.bid_volume,
	ask_volume = EXCLUDED.ask_volume,
	active_contract_id = EXCLUDED.active_contract_id,
	rollover_flag = EXCLUDED.rollover_flag`).
		ToSql()
}

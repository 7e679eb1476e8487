package repository

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawContractUpsertSQL(t *testing.T) {
	data := &entity.RawContract{
		ContractID: "ESH24",
		Symbol:     "ES",
		ExpiryDate: null.TimeFrom(time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)),
		Datetime:   time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC),
		Price:      decimal.NewFromFloat(5210.25),
		NumTrades:  12,
		BidVolume:  60,
		AskVolume:  80,
	}

	query, args, err := rawContractUpsertSQL(data)
	require.NoError(t, err)

	// Replayed deliveries of the same (contract_id, datetime) must collapse
	// into one row carrying the later values.
	assert.Contains(t, query, "INSERT INTO raw_contracts")
	assert.Contains(t, query, "ON CONFLICT (contract_id, datetime)")
	assert.Contains(t, query, "price = EXCLUDED.price")
	assert.Contains(t, query, "num_trades = EXCLUDED.num_trades")
	assert.Contains(t, query, "bid_volume = EXCLUDED.bid_volume")
	assert.Contains(t, query, "ask_volume = EXCLUDED.ask_volume")
	assert.Contains(t, query, "$8", "all eight columns must bind placeholders")

	assert.Equal(t, []interface{}{
		data.ContractID,
		data.Symbol,
		data.ExpiryDate,
		data.Datetime,
		data.Price,
		data.NumTrades,
		data.BidVolume,
		data.AskVolume,
	}, args)
}

func TestContinuousContractUpsertSQL(t *testing.T) {
	data := &entity.ContinuousContract{
		Symbol:           "ES",
		Datetime:         time.Date(2024, time.March, 15, 14, 30, 2, 0, time.UTC),
		Price:            decimal.NewFromFloat(5211.5),
		Volume:           410,
		NumTrades:        30,
		BidVolume:        190,
		AskVolume:        220,
		ActiveContractID: "ESH24",
		RolloverFlag:     true,
	}

	query, args, err := continuousContractUpsertSQL(data)
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO continuous_contracts")
	assert.Contains(t, query, "ON CONFLICT (symbol, datetime)")
	assert.Contains(t, query, "price = EXCLUDED.price")
	assert.Contains(t, query, "volume = EXCLUDED.volume")
	assert.Contains(t, query, "active_contract_id = EXCLUDED.active_contract_id")
	assert.Contains(t, query, "rollover_flag = EXCLUDED.rollover_flag")
	assert.Contains(t, query, "$9", "all nine columns must bind placeholders")

	assert.Equal(t, []interface{}{
		data.Symbol,
		data.Datetime,
		data.Price,
		data.Volume,
		data.NumTrades,
		data.BidVolume,
		data.AskVolume,
		data.ActiveContractID,
		data.RolloverFlag,
	}, args)
}

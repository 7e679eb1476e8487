package entity

import (
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

type RawContract struct {
	ID         int64           `db:"id" json:"id"`
	ContractID string          `db:"contract_id" json:"contract_id"`
	Symbol     string          `db:"symbol" json:"symbol"`
	ExpiryDate null.Time       `db:"expiry_date" json:"expiry_date"`
	Datetime   time.Time       `db:"datetime" json:"datetime"`
	Price      decimal.Decimal `db:"price" json:"price"`
	NumTrades  int32           `db:"num_trades" json:"num_trades"`
	BidVolume  int32           `db:"bid_volume" json:"bid_volume"`
	AskVolume  int32           `db:"ask_volume" json:"ask_volume"`
}

func (RawContract) TableName() string {
	return "raw_contracts"
}

type ContinuousContract struct {
	ID               int64           `db:"id" json:"id"`
	Symbol           string          `db:"symbol" json:"symbol"`
	Datetime         time.Time       `db:"datetime" json:"datetime"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Volume           int32           `db:"volume" json:"volume"`
	NumTrades        int32           `db:"num_trades" json:"num_trades"`
	BidVolume        int32           `db:"bid_volume" json:"bid_volume"`
	AskVolume        int32           `db:"ask_volume" json:"ask_volume"`
	ActiveContractID string          `db:"active_contract_id" json:"active_contract_id"`
	RolloverFlag     bool            `db:"rollover_flag" json:"rollover_flag"`
}

func (ContinuousContract) TableName() string {
	return "continuous_contracts"
}

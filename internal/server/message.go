package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	messageTypeRaw        = "raw_data"
	messageTypeContinuous = "continuous_data"
)

// wireMessage is the superset of both frame shapes. Optional numeric fields
// default to zero and rollover_flag to false when absent; price is required,
// a pointer so absence is distinguishable from a legitimate zero.
type wireMessage struct {
	Type             string   `json:"type"`
	ContractID       string   `json:"contract_id"`
	Symbol           string   `json:"symbol"`
	Price            *float64 `json:"price"`
	Timestamp        string  `json:"timestamp"`
	ExpiryDate       string  `json:"expiry_date"`
	NumTrades        int32   `json:"num_trades"`
	BidVolume        int32   `json:"bid_volume"`
	AskVolume        int32   `json:"ask_volume"`
	Volume           int32   `json:"volume"`
	ActiveContractID string  `json:"active_contract_id"`
	RolloverFlag     bool    `json:"rollover_flag"`
}

var (
	errMissingTimestamp  = errors.New("timestamp is required")
	errMissingSymbol     = errors.New("symbol is required")
	errMissingContractID = errors.New("contract_id is required")
	errMissingActiveID   = errors.New("active_contract_id is required")
	errMissingPrice      = errors.New("price is required")
)

// Producers emit ISO-8601; python's isoformat omits the zone for naive
// datetimes, those are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errMissingTimestamp
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

func parseExpiryDate(value string) (null.Time, error) {
	if value == "" {
		return null.Time{}, nil
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		return null.TimeFrom(t), nil
	}

	t, err := parseTimestamp(value)
	if err != nil {
		return null.Time{}, fmt.Errorf("unparsable expiry_date %q", value)
	}

	return null.TimeFrom(t.Truncate(24 * time.Hour)), nil
}

func normalizeRaw(msg wireMessage) (*entity.RawContract, error) {
	if msg.ContractID == "" {
		return nil, errMissingContractID
	}
	if msg.Symbol == "" {
		return nil, errMissingSymbol
	}
	if msg.Price == nil {
		return nil, errMissingPrice
	}

	datetime, err := parseTimestamp(msg.Timestamp)
	if err != nil {
		return nil, err
	}

	expiryDate, err := parseExpiryDate(msg.ExpiryDate)
	if err != nil {
		return nil, err
	}

	return &entity.RawContract{
		ContractID: msg.ContractID,
		Symbol:     msg.Symbol,
		ExpiryDate: expiryDate,
		Datetime:   datetime,
		Price:      decimal.NewFromFloat(*msg.Price),
		NumTrades:  msg.NumTrades,
		BidVolume:  msg.BidVolume,
		AskVolume:  msg.AskVolume,
	}, nil
}

func normalizeContinuous(msg wireMessage) (*entity.ContinuousContract, error) {
	if msg.Symbol == "" {
		return nil, errMissingSymbol
	}
	if msg.ActiveContractID == "" {
		return nil, errMissingActiveID
	}
	if msg.Price == nil {
		return nil, errMissingPrice
	}

	datetime, err := parseTimestamp(msg.Timestamp)
	if err != nil {
		return nil, err
	}

	return &entity.ContinuousContract{
		Symbol:           msg.Symbol,
		Datetime:         datetime,
		Price:            decimal.NewFromFloat(*msg.Price),
		Volume:           msg.Volume,
		NumTrades:        msg.NumTrades,
		BidVolume:        msg.BidVolume,
		AskVolume:        msg.AskVolume,
		ActiveContractID: msg.ActiveContractID,
		RolloverFlag:     msg.RolloverFlag,
	}, nil
}

package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wirePrice(v float64) *float64 {
	return &v
}

func TestNormalizeRaw(t *testing.T) {
	record, err := normalizeRaw(wireMessage{
		Type:       messageTypeRaw,
		ContractID: "ESH24",
		Symbol:     "ES",
		Price:      wirePrice(5210.25),
		Timestamp:  "2024-03-15T14:30:00Z",
		ExpiryDate: "2024-06-21",
		NumTrades:  12,
		BidVolume:  60,
		AskVolume:  80,
	})
	require.NoError(t, err)

	assert.Equal(t, "ESH24", record.ContractID)
	assert.Equal(t, "ES", record.Symbol)
	assert.Equal(t, "5210.25", record.Price.String())
	assert.True(t, record.Datetime.Equal(time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)))
	require.True(t, record.ExpiryDate.Valid)
	assert.True(t, record.ExpiryDate.Time.Equal(time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeRawOptionalDefaults(t *testing.T) {
	record, err := normalizeRaw(wireMessage{
		Type:       messageTypeRaw,
		ContractID: "CLK24",
		Symbol:     "CL",
		Price:      wirePrice(78.4),
		Timestamp:  "2024-03-15T14:30:00Z",
	})
	require.NoError(t, err)

	assert.False(t, record.ExpiryDate.Valid)
	assert.Zero(t, record.NumTrades)
	assert.Zero(t, record.BidVolume)
	assert.Zero(t, record.AskVolume)
}

func TestNormalizeRawValidation(t *testing.T) {
	base := wireMessage{
		Type:       messageTypeRaw,
		ContractID: "ESH24",
		Symbol:     "ES",
		Price:      wirePrice(5210.25),
		Timestamp:  "2024-03-15T14:30:00Z",
	}

	missingTimestamp := base
	missingTimestamp.Timestamp = ""
	_, err := normalizeRaw(missingTimestamp)
	assert.ErrorIs(t, err, errMissingTimestamp)

	badTimestamp := base
	badTimestamp.Timestamp = "yesterday"
	_, err = normalizeRaw(badTimestamp)
	assert.Error(t, err)

	missingContract := base
	missingContract.ContractID = ""
	_, err = normalizeRaw(missingContract)
	assert.ErrorIs(t, err, errMissingContractID)

	badExpiry := base
	badExpiry.ExpiryDate = "june"
	_, err = normalizeRaw(badExpiry)
	assert.Error(t, err)

	missingPrice := base
	missingPrice.Price = nil
	_, err = normalizeRaw(missingPrice)
	assert.ErrorIs(t, err, errMissingPrice)

	zeroPrice := base
	zeroPrice.Price = wirePrice(0)
	record, err := normalizeRaw(zeroPrice)
	require.NoError(t, err, "an explicit zero price is valid, only absence is rejected")
	assert.True(t, record.Price.IsZero())
}

func TestNormalizeContinuousDefaults(t *testing.T) {
	record, err := normalizeContinuous(wireMessage{
		Type:             messageTypeContinuous,
		Symbol:           "ES",
		Price:            wirePrice(5211.5),
		Timestamp:        "2024-03-15T14:30:02Z",
		ActiveContractID: "ESH24",
	})
	require.NoError(t, err)

	assert.Zero(t, record.Volume)
	assert.Zero(t, record.NumTrades)
	assert.False(t, record.RolloverFlag)
	assert.Equal(t, "ESH24", record.ActiveContractID)
}

func TestNormalizeContinuousValidation(t *testing.T) {
	_, err := normalizeContinuous(wireMessage{
		Type:      messageTypeContinuous,
		Symbol:    "ES",
		Price:     wirePrice(5211.5),
		Timestamp: "2024-03-15T14:30:02Z",
	})
	assert.ErrorIs(t, err, errMissingActiveID)

	_, err = normalizeContinuous(wireMessage{
		Type:             messageTypeContinuous,
		ActiveContractID: "ESH24",
		Price:            wirePrice(5211.5),
		Timestamp:        "2024-03-15T14:30:02Z",
	})
	assert.ErrorIs(t, err, errMissingSymbol)

	_, err = normalizeContinuous(wireMessage{
		Type:             messageTypeContinuous,
		Symbol:           "ES",
		ActiveContractID: "ESH24",
		Timestamp:        "2024-03-15T14:30:02Z",
	})
	assert.ErrorIs(t, err, errMissingPrice)
}

func TestParseTimestampNaiveIsUTC(t *testing.T) {
	got, err := parseTimestamp("2024-03-15T14:30:00.123456")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123456000, got.Nanosecond())
}

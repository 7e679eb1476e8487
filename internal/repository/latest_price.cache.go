package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/tick-ingestor/internal/constant"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type LatestPrice struct {
	Symbol           string          `json:"symbol"`
	Price            decimal.Decimal `json:"price"`
	Datetime         time.Time       `json:"datetime"`
	ActiveContractID string          `json:"active_contract_id"`
}

// LatestPriceCache mirrors the most recent committed continuous-contract
// price per symbol into redis for downstream readers. Best effort: the batch
// writer logs and moves on when an update fails.
type LatestPriceCache struct {
	client *redis.Client
}

func NewLatestPriceCache(client *redis.Client) *LatestPriceCache {
	return &LatestPriceCache{client: client}
}

func (c *LatestPriceCache) Set(ctx context.Context, data *entity.ContinuousContract) error {
	payload, err := json.Marshal(LatestPrice{
		Symbol:           data.Symbol,
		Price:            data.Price,
		Datetime:         data.Datetime,
		ActiveContractID: data.ActiveContractID,
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, constant.LatestPriceKeyPrefix+data.Symbol, payload, 0).Err()
}

func (c *LatestPriceCache) Get(ctx context.Context, symbol string) (LatestPrice, bool, error) {
	raw, err := c.client.Get(ctx, constant.LatestPriceKeyPrefix+symbol).Result()
	if err != nil {
		if err == redis.Nil {
			return LatestPrice{}, false, nil
		}
		return LatestPrice{}, false, err
	}

	var price LatestPrice
	if err := json.Unmarshal([]byte(raw), &price); err != nil {
		return LatestPrice{}, false, fmt.Errorf("decode latest price for %s: %w", symbol, err)
	}

	return price, true, nil
}

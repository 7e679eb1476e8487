package replay

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/tick-ingestor/internal/scid"
	"github.com/sirupsen/logrus"
)

const dialTimeout = 5 * time.Second

// Replayer decodes .scid files from the last bookkept byte offset and emits
// the records as raw_data frames against the ingestion server. The offset is
// advanced only after the frames have been written, so a crashed replay
// resumes without skipping records; the server's idempotent upserts absorb
// any frames that were delivered before the crash.
type Replayer struct {
	serverAddr string
	store      *scid.BookkeepingStore
}

func New(serverAddr string, store *scid.BookkeepingStore) *Replayer {
	return &Replayer{serverAddr: serverAddr, store: store}
}

// rawDataFrame matches the raw_data wire shape.
type rawDataFrame struct {
	Type       string  `json:"type"`
	ContractID string  `json:"contract_id"`
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Timestamp  string  `json:"timestamp"`
	NumTrades  uint32  `json:"num_trades"`
	BidVolume  uint32  `json:"bid_volume"`
	AskVolume  uint32  `json:"ask_volume"`
}

// ReplayAll replays every symbol in order, continuing past per-symbol
// failures so one missing file does not block the rest.
func (r *Replayer) ReplayAll(ctx context.Context, symbols []string) error {
	var lastErr error

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		sent, err := r.ReplaySymbol(ctx, symbol)
		if err != nil {
			logrus.Errorf("replay %s failed: %v", symbol, err)
			lastErr = err
			continue
		}

		logrus.WithFields(logrus.Fields{
			"symbol": symbol,
			"sent":   sent,
		}).Info("symbol replayed")
	}

	return lastErr
}

// ReplaySymbol decodes everything after the bookkept offset and streams it
// to the server. Returns the number of frames sent.
func (r *Replayer) ReplaySymbol(ctx context.Context, symbol string) (int, error) {
	record, err := r.store.EnsureSymbol(symbol)
	if err != nil {
		return 0, err
	}

	ticks, newOffset, err := scid.DecodeFrom(record.FilePath, record.LastParsedOffset)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", record.FilePath, err)
	}

	if len(ticks) == 0 {
		return 0, nil
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", r.serverAddr)
	if err != nil {
		return 0, fmt.Errorf("dial ingest server %s: %w", r.serverAddr, err)
	}
	defer conn.Close()

	base := baseSymbol(symbol)
	lastTimestamp := ""

	for _, tick := range ticks {
		timestamp := tick.Time().Format(time.RFC3339Nano)

		payload, err := json.Marshal(rawDataFrame{
			Type:       "raw_data",
			ContractID: symbol,
			Symbol:     base,
			Price:      float64(tick.Close),
			Timestamp:  timestamp,
			NumTrades:  tick.NumTrades,
			BidVolume:  tick.BidVolume,
			AskVolume:  tick.AskVolume,
		})
		if err != nil {
			return 0, fmt.Errorf("encode frame for %s: %w", symbol, err)
		}

		if _, err := conn.Write(append(payload, '\n')); err != nil {
			return 0, fmt.Errorf("send frame for %s: %w", symbol, err)
		}

		lastTimestamp = timestamp
	}

	if err := r.store.UpdateAfterParse(symbol, newOffset, lastTimestamp); err != nil {
		return len(ticks), err
	}

	return len(ticks), nil
}

// contractSuffixPattern matches a futures month code plus two-digit year,
// e.g. the H24 in ESH24.
var contractSuffixPattern = regexp.MustCompile(`^(.+?)[FGHJKMNQUVXZ]\d{2}$`)

// baseSymbol strips the contract suffix from a contract code, falling back
// to the input when it does not look like a dated contract.
func baseSymbol(contractID string) string {
	m := contractSuffixPattern.FindStringSubmatch(contractID)
	if m == nil {
		return contractID
	}

	return m[1]
}

package scid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

const (
	// HeaderSize is the fixed .scid file header. The header content is not
	// interpreted here, only skipped.
	HeaderSize = 56
	// RecordSize is one intraday record: u64 scdatetime, four f32 prices,
	// four u32 volume fields, all little-endian.
	RecordSize = 40
)

var (
	ErrInsufficientData = errors.New("scid: file smaller than header")
	ErrSkipBeyondEOF    = errors.New("cannot skip more records than exist")
)

// TickRecord is one decoded intraday record. Immutable once decoded.
type TickRecord struct {
	SCDateTime  uint64
	Open        float32
	High        float32
	Low         float32
	Close       float32
	NumTrades   uint32
	TotalVolume uint32
	BidVolume   uint32
	AskVolume   uint32
}

// scEpoch is the SierraChart time origin; SCDateTime counts microseconds
// from it.
var scEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Time converts the record timestamp to UTC wall time.
func (r TickRecord) Time() time.Time {
	return scEpoch.Add(time.Duration(r.SCDateTime) * time.Microsecond)
}

// TimeToSCDateTime is the inverse of TickRecord.Time, used by tests and
// file writers.
func TimeToSCDateTime(t time.Time) uint64 {
	return uint64(t.Sub(scEpoch) / time.Microsecond)
}

// DecodeFrom reads every complete record between offset and end-of-file and
// returns the byte position immediately after the last record read. It is a
// pure function of the file content, designed for repeated incremental calls
// with an offset persisted by the bookkeeping store.
//
// Offsets are normalized before reading: an offset past end-of-file clamps
// to the first byte after the last complete record (nothing new to read),
// an offset inside the header clamps up to the header boundary so header
// bytes are never parsed as data.
func DecodeFrom(path string, offset int64) ([]TickRecord, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("scid: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("scid: stat %s: %w", path, err)
	}

	fileSize := info.Size()
	if fileSize < HeaderSize {
		return nil, 0, ErrInsufficientData
	}

	if offset >= fileSize {
		offset = fileSize - fileSize%RecordSize
	} else if offset < HeaderSize {
		offset = HeaderSize
	}

	recordCount := (fileSize - offset) / RecordSize
	if recordCount <= 0 {
		return nil, offset, nil
	}

	buf := make([]byte, recordCount*RecordSize)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, 0, fmt.Errorf("scid: read %s at %d: %w", path, offset, err)
	}

	records := make([]TickRecord, 0, recordCount)
	for i := int64(0); i < recordCount; i++ {
		records = append(records, decodeRecord(buf[i*RecordSize:(i+1)*RecordSize]))
	}

	return records, offset + recordCount*RecordSize, nil
}

func decodeRecord(b []byte) TickRecord {
	return TickRecord{
		SCDateTime:  binary.LittleEndian.Uint64(b[0:8]),
		Open:        math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		High:        math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
		Low:         math.Float32frombits(binary.LittleEndian.Uint32(b[16:20])),
		Close:       math.Float32frombits(binary.LittleEndian.Uint32(b[20:24])),
		NumTrades:   binary.LittleEndian.Uint32(b[24:28]),
		TotalVolume: binary.LittleEndian.Uint32(b[28:32]),
		BidVolume:   binary.LittleEndian.Uint32(b[32:36]),
		AskVolume:   binary.LittleEndian.Uint32(b[36:40]),
	}
}

// OffsetAfterRecords maps a record count to the byte offset of the first
// record after it, failing when the file holds fewer records.
func OffsetAfterRecords(path string, records int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("scid: stat %s: %w", path, err)
	}

	if info.Size() < HeaderSize {
		return 0, ErrInsufficientData
	}

	available := (info.Size() - HeaderSize) / RecordSize
	if records > available {
		return 0, ErrSkipBeyondEOF
	}

	return HeaderSize + records*RecordSize, nil
}

package scid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// SymbolBookkeeping tracks how far a symbol's .scid file has been parsed.
// One record per symbol, mutated only by the decoding driver after a
// successful read.
type SymbolBookkeeping struct {
	LastParsedOffset    int64  `json:"last_parsed_offset"`
	InitialLoadDone     bool   `json:"initial_load_done"`
	LastParsedTimestamp string `json:"last_parsed_timestamp"`
	FilePath            string `json:"file_path"`
}

type bookkeepingDocument struct {
	SymbolSettings map[string]SymbolBookkeeping `json:"symbol_settings"`
}

// BookkeepingStore persists per-symbol parse positions as one JSON document.
// Single-writer discipline: callers must not mutate the document
// concurrently.
type BookkeepingStore struct {
	path    string
	dataDir string
}

func NewBookkeepingStore(path, dataDir string) *BookkeepingStore {
	return &BookkeepingStore{path: path, dataDir: dataDir}
}

// EnsureSymbol creates the default record for symbol if absent. It never
// overwrites an existing record.
func (s *BookkeepingStore) EnsureSymbol(symbol string) (SymbolBookkeeping, error) {
	doc, err := s.load()
	if err != nil {
		return SymbolBookkeeping{}, err
	}

	if existing, ok := doc.SymbolSettings[symbol]; ok {
		return existing, nil
	}

	record := SymbolBookkeeping{
		LastParsedOffset:    0,
		InitialLoadDone:     false,
		LastParsedTimestamp: "",
		FilePath:            filepath.Join(s.dataDir, symbol+".scid"),
	}
	doc.SymbolSettings[symbol] = record

	if err := s.save(doc); err != nil {
		return SymbolBookkeeping{}, err
	}

	return record, nil
}

// Get returns the record for symbol; ok is false when the symbol was never
// registered.
func (s *BookkeepingStore) Get(symbol string) (SymbolBookkeeping, bool, error) {
	doc, err := s.load()
	if err != nil {
		return SymbolBookkeeping{}, false, err
	}

	record, ok := doc.SymbolSettings[symbol]
	return record, ok, nil
}

// UpdateAfterParse persists the advanced position after a successful decode.
// The offset is monotonically non-decreasing; a stale offset is rejected.
func (s *BookkeepingStore) UpdateAfterParse(symbol string, newOffset int64, newTimestamp string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}

	record, ok := doc.SymbolSettings[symbol]
	if !ok {
		return fmt.Errorf("bookkeeping: unknown symbol %s", symbol)
	}

	if newOffset < record.LastParsedOffset {
		return fmt.Errorf("bookkeeping: offset for %s moved backwards (%d < %d)",
			symbol, newOffset, record.LastParsedOffset)
	}

	record.LastParsedOffset = newOffset
	record.InitialLoadDone = true
	record.LastParsedTimestamp = newTimestamp
	doc.SymbolSettings[symbol] = record

	return s.save(doc)
}

func (s *BookkeepingStore) load() (bookkeepingDocument, error) {
	doc := bookkeepingDocument{SymbolSettings: map[string]SymbolBookkeeping{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("bookkeeping: read %s: %w", s.path, err)
	}

	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("bookkeeping: parse %s: %w", s.path, err)
	}

	if doc.SymbolSettings == nil {
		doc.SymbolSettings = map[string]SymbolBookkeeping{}
	}

	return doc, nil
}

// save writes through a temp file and renames it into place so a crash never
// leaves a truncated document.
func (s *BookkeepingStore) save(doc bookkeepingDocument) error {
	payload, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("bookkeeping: marshal: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return fmt.Errorf("bookkeeping: write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("bookkeeping: rename %s: %w", tmpPath, err)
	}

	return nil
}

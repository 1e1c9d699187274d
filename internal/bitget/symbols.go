package bitget

import (
	"sync"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/observability"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/schema"
)

// SymbolMap translates between venue symbols and canonical trading pairs.
// Both directions are served from the same snapshot so lookups stay
// consistent across a Replace.
type SymbolMap struct {
	mu       sync.RWMutex
	byPair   map[string]string
	bySymbol map[string]string
}

func NewSymbolMap() *SymbolMap {
	return &SymbolMap{
		byPair:   make(map[string]string),
		bySymbol: make(map[string]string),
	}
}

// Replace rebuilds the mapping from an instrument snapshot. Instruments
// that are not online are excluded. When two instruments normalize to the
// same trading pair the first one wins and the rest are skipped.
func (m *SymbolMap) Replace(instruments []schema.Instrument) {
	byPair := make(map[string]string, len(instruments))
	bySymbol := make(map[string]string, len(instruments))
	for _, inst := range instruments {
		if inst.Status != statusOnline {
			continue
		}
		pair := schema.CombinePair(inst.BaseAsset, inst.QuoteAsset)
		if _, ok := byPair[pair]; ok {
			observability.Log().Warn("duplicate trading pair in instrument snapshot",
				observability.F("pair", pair),
				observability.F("symbol", inst.Symbol))
			continue
		}
		byPair[pair] = inst.Symbol
		bySymbol[inst.Symbol] = pair
	}

	m.mu.Lock()
	m.byPair = byPair
	m.bySymbol = bySymbol
	m.mu.Unlock()
}

// SymbolFor returns the venue symbol for a canonical trading pair.
func (m *SymbolMap) SymbolFor(pair string) (string, error) {
	m.mu.RLock()
	symbol, ok := m.byPair[pair]
	m.mu.RUnlock()
	if !ok {
		return "", errs.New(venueName, errs.CodeSymbolNotFound,
			errs.WithMessage("no venue symbol for trading pair "+pair))
	}
	return symbol, nil
}

// PairFor returns the canonical trading pair for a venue symbol.
func (m *SymbolMap) PairFor(symbol string) (string, error) {
	m.mu.RLock()
	pair, ok := m.bySymbol[symbol]
	m.mu.RUnlock()
	if !ok {
		return "", errs.New(venueName, errs.CodeSymbolNotFound,
			errs.WithMessage("no trading pair for venue symbol "+symbol))
	}
	return pair, nil
}

// Pairs returns all known canonical trading pairs.
func (m *SymbolMap) Pairs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pairs := make([]string, 0, len(m.byPair))
	for pair := range m.byPair {
		pairs = append(pairs, pair)
	}
	return pairs
}

// Len reports the number of mapped instruments.
func (m *SymbolMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPair)
}

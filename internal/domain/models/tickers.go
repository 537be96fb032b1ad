package models

import (
	"errors"
	"fmt"
)

// ErrUnsupportedTicker rejects requests for instruments outside the
// configured allow-list. Never retried.
var ErrUnsupportedTicker = errors.New("unsupported ticker")

// DefaultTickers is the default instrument allow-list: the ten STOXX Europe
// 600 companies the models were trained on.
var DefaultTickers = []string{
	"ASML.AS",   // ASML Holding
	"SAP.DE",    // SAP SE
	"NESN.SW",   // Nestlé
	"MC.PA",     // LVMH
	"NOVO-B.CO", // Novo Nordisk
	"NOVN.SW",   // Novartis
	"ROG.SW",    // Roche
	"TTE.PA",    // TotalEnergies
	"SIE.DE",    // Siemens
	"OR.PA",     // L'Oréal
}

// TickerSet is an instrument allow-list with O(1) membership checks.
type TickerSet struct {
	set   map[string]struct{}
	order []string
}

// NewTickerSet builds an allow-list from symbols; empty input falls back to
// DefaultTickers.
func NewTickerSet(symbols []string) *TickerSet {
	if len(symbols) == 0 {
		symbols = DefaultTickers
	}
	ts := &TickerSet{set: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		if _, ok := ts.set[s]; ok {
			continue
		}
		ts.set[s] = struct{}{}
		ts.order = append(ts.order, s)
	}
	return ts
}

// Contains reports whether symbol belongs to the allow-list.
func (ts *TickerSet) Contains(symbol string) bool {
	_, ok := ts.set[symbol]
	return ok
}

// Require returns ErrUnsupportedTicker when symbol is not allow-listed.
func (ts *TickerSet) Require(symbol string) error {
	if symbol == "" || !ts.Contains(symbol) {
		return fmt.Errorf("%w: %q", ErrUnsupportedTicker, symbol)
	}
	return nil
}

// Symbols returns the allow-listed symbols in configuration order.
func (ts *TickerSet) Symbols() []string {
	out := make([]string, len(ts.order))
	copy(out, ts.order)
	return out
}

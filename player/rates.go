package player

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultRates mirrors the usual system speed menu
var DefaultRates = []float64{0.5, 1, 1.25, 1.5, 2}

// RateList is a fixed-size circular list of supported playback rates
type RateList struct {
	mu     sync.Mutex
	rates  []float64
	index  int
	normal int
}

// NewRateList creates a list positioned on the 1x entry (or the first entry if absent)
func NewRateList(rates []float64) *RateList {
	if len(rates) == 0 {
		rates = DefaultRates
	}
	l := &RateList{rates: append([]float64(nil), rates...)}
	for i, r := range l.rates {
		if r == 1 {
			l.normal = i
			break
		}
	}
	l.index = l.normal
	return l
}

// Current returns the selected rate
func (l *RateList) Current() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rates[l.index]
}

// Next advances to the following rate, wrapping at the end
func (l *RateList) Next() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index = (l.index + 1) % len(l.rates)
	return l.rates[l.index]
}

// Reset selects the normal rate again
func (l *RateList) Reset() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index = l.normal
	return l.rates[l.index]
}

// Len returns the number of rates in the cycle
func (l *RateList) Len() int {
	return len(l.rates)
}

var ratePrinter = message.NewPrinter(language.English)

// RateLabel formats a rate the way speed menus show it, e.g. "1.25×"
func RateLabel(rate float64) string {
	return ratePrinter.Sprint(number.Decimal(rate, number.MaxFractionDigits(2))) + "×"
}

package pgdas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// periodPattern matches a period label. The token is MM/YYYY.
const periodPattern = `\d{2}/\d{4}`

var (
	periodRegex       = regexp.MustCompile(periodPattern)
	adjacentPairRegex = regexp.MustCompile(`(` + periodPattern + `)\s+(` + amountPattern + `)`)
)

// RevenueStrategy selects how monthly amounts are paired with period labels.
type RevenueStrategy int

const (
	// StrategySegment takes, for each period label, the first amount found
	// between that label and the next one (or the end of the section).
	StrategySegment RevenueStrategy = iota
	// StrategyAdjacentPair only accepts an amount that directly follows its
	// period label, separated by whitespace.
	StrategyAdjacentPair
)

// String returns the configuration name of the strategy.
func (s RevenueStrategy) String() string {
	switch s {
	case StrategySegment:
		return "segment"
	case StrategyAdjacentPair:
		return "adjacent"
	default:
		return fmt.Sprintf("RevenueStrategy(%d)", int(s))
	}
}

// ParseRevenueStrategy maps a configuration name to a strategy.
func ParseRevenueStrategy(name string) (RevenueStrategy, error) {
	switch name {
	case "segment", "":
		return StrategySegment, nil
	case "adjacent":
		return StrategyAdjacentPair, nil
	}
	return StrategySegment, fmt.Errorf("unknown revenue strategy %q (must be segment or adjacent)", name)
}

// RevenueEntry is one period of a revenue series.
type RevenueEntry struct {
	Period string  `json:"period"`
	Amount float64 `json:"amount"`
}

// RevenueSeries maps period labels to amounts, keeping the order in which the
// periods were first seen. Setting an existing period overwrites its amount in
// place. The zero value is empty and ready to use.
type RevenueSeries struct {
	periods []string
	amounts map[string]float64
}

// NewRevenueSeries returns an empty series.
func NewRevenueSeries() *RevenueSeries {
	return &RevenueSeries{amounts: make(map[string]float64)}
}

// Set records amount for period.
func (s *RevenueSeries) Set(period string, amount float64) {
	if s.amounts == nil {
		s.amounts = make(map[string]float64)
	}
	if _, ok := s.amounts[period]; !ok {
		s.periods = append(s.periods, period)
	}
	s.amounts[period] = amount
}

// Get returns the amount of period and whether it is present.
func (s *RevenueSeries) Get(period string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.amounts[period]
	return v, ok
}

// Len returns the number of periods.
func (s *RevenueSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.periods)
}

// Periods returns the period labels in first-seen order.
func (s *RevenueSeries) Periods() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.periods))
	copy(out, s.periods)
	return out
}

// Entries returns the series as a slice in first-seen order.
func (s *RevenueSeries) Entries() []RevenueEntry {
	if s == nil {
		return nil
	}
	out := make([]RevenueEntry, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, RevenueEntry{Period: p, Amount: s.amounts[p]})
	}
	return out
}

// Clone returns a copy that shares no storage with s.
func (s *RevenueSeries) Clone() *RevenueSeries {
	c := NewRevenueSeries()
	for _, e := range s.Entries() {
		c.Set(e.Period, e.Amount)
	}
	return c
}

// MarshalJSON encodes the series as a JSON object whose keys keep first-seen order.
func (s *RevenueSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Period)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Amount)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (s *RevenueSeries) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = RevenueSeries{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("revenue series: expected JSON object, got %v", tok)
	}

	series := NewRevenueSeries()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("revenue series: unexpected key %v", keyTok)
		}
		var amount float64
		if err := dec.Decode(&amount); err != nil {
			return fmt.Errorf("revenue series: period %s: %w", key, err)
		}
		series.Set(key, amount)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = *series
	return nil
}

// ExtractMonthlyRevenues builds the revenue series of one market section using
// the segment strategy.
func ExtractMonthlyRevenues(section string) *RevenueSeries {
	return extractRevenues(section, StrategySegment)
}

func extractRevenues(section string, strategy RevenueStrategy) *RevenueSeries {
	if strategy == StrategyAdjacentPair {
		return extractAdjacentPairs(section)
	}
	return extractSegments(section)
}

func extractSegments(section string) *RevenueSeries {
	series := NewRevenueSeries()
	labels := periodRegex.FindAllStringIndex(section, -1)
	for i, loc := range labels {
		end := len(section)
		if i+1 < len(labels) {
			end = labels[i+1][0]
		}
		// No amount in the segment still yields a zero entry.
		amount := firstAmount(section[loc[1]:end])
		series.Set(section[loc[0]:loc[1]], ParseAmount(amount))
	}
	return series
}

func extractAdjacentPairs(section string) *RevenueSeries {
	series := NewRevenueSeries()
	for _, m := range adjacentPairRegex.FindAllStringSubmatch(section, -1) {
		series.Set(m[1], ParseAmount(m[2]))
	}
	return series
}

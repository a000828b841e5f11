package match

import "github.com/pawtrace/pawtrace/internal/domain/alert"

// Match pairs a candidate alert with its fused similarity score.
type Match struct {
	alert alert.Alert
	score float64
}

// New creates a Match.
func New(a alert.Alert, score float64) Match {
	return Match{alert: a, score: score}
}

// Alert returns the matched alert.
func (m *Match) Alert() *alert.Alert { return &m.alert }

// Score returns the fused similarity score.
func (m *Match) Score() float64 { return m.score }

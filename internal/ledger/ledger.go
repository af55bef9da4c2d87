// Package ledger accumulates per-run delivery statistics. A Ledger is owned
// by a single run and read once at the end; it is purely additive and has
// no existence outside the run.
package ledger

import (
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

// Ledger counts sent, failed and duplicate leads and keeps the descriptors
// of successfully contacted leads for the end-of-run summary.
type Ledger struct {
	sent       int
	failed     int
	duplicates int
	contacted  []string
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

// RecordSent registers a successfully contacted lead.
func (l *Ledger) RecordSent(lead model.Lead) {
	l.sent++
	l.contacted = append(l.contacted, lead.Descriptor())
}

// RecordFailed registers a lead whose delivery attempt failed.
func (l *Ledger) RecordFailed(lead model.Lead) {
	l.failed++
}

// RecordDuplicates registers n leads collapsed onto an already-contacted
// base number without separate delivery attempts.
func (l *Ledger) RecordDuplicates(n int) {
	if n > 0 {
		l.duplicates += n
	}
}

// Summary produces the run report. Total counts every lead the run
// disposed of: sent, failed, or collapsed as a duplicate.
func (l *Ledger) Summary() model.RunSummary {
	return model.RunSummary{
		Sent:       l.sent,
		Failed:     l.failed,
		Duplicates: l.duplicates,
		Total:      l.sent + l.failed + l.duplicates,
		Contacted:  l.contacted,
	}
}

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

func TestLedger_Empty(t *testing.T) {
	sum := New().Summary()
	assert.Zero(t, sum.Sent)
	assert.Zero(t, sum.Failed)
	assert.Zero(t, sum.Duplicates)
	assert.Zero(t, sum.Total)
	assert.Empty(t, sum.Contacted)
}

func TestLedger_Counts(t *testing.T) {
	l := New()
	l.RecordSent(model.Lead{ID: "a", Name: "A", Phone: "111"})
	l.RecordFailed(model.Lead{ID: "b", Name: "B", Phone: "222"})
	l.RecordDuplicates(1)

	sum := l.Summary()
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Duplicates)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, []string{"a - A (111)"}, sum.Contacted)
}

func TestLedger_NegativeDuplicatesIgnored(t *testing.T) {
	l := New()
	l.RecordDuplicates(0)
	l.RecordDuplicates(-3)
	assert.Zero(t, l.Summary().Duplicates)
}

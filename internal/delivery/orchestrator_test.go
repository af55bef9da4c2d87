package delivery

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

var errChannelDead = eris.New("session dropped")

var (
	leadA = model.Lead{ID: "a", Name: "Pizzaria A", Phone: "(71) 99999-1234", Niche: "pizzaria", Status: model.StatusPending}
	leadB = model.Lead{ID: "b", Name: "Hamburgueria B", Phone: "123", Niche: "hamburgueria", Status: model.StatusPending}
	leadC = model.Lead{ID: "c", Name: "Pizzaria C", Phone: "71 9999-1234", Niche: "pizzaria", Status: model.StatusPending}
)

// Base number shared by leads A and C.
const baseA = "5571999991234"

func TestRun_EndToEnd(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA, leadB, leadC}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"a"}, model.StatusSent, mock.Anything).Return(nil)
	st.On("FindPendingByBaseNumber", mock.Anything, baseA).Return([]model.Lead{leadC}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"c"}, model.StatusSent, mock.Anything).Return(nil)
	st.On("UpdateStatus", mock.Anything, []string{"b"}, model.StatusFailed, mock.Anything).Return(nil)

	ch := newFakeChannel()
	ch.registered[baseA] = true

	o := New(st, ch, noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Duplicates)
	assert.Equal(t, 3, sum.Total)
	require.Len(t, sum.Contacted, 1)
	assert.Contains(t, sum.Contacted[0], "Pizzaria A")

	// Exactly one send; the duplicate lead never reached the channel.
	assert.Equal(t, []string{baseA}, ch.sends)
	st.AssertExpectations(t)
}

func TestRun_NoRegisteredCandidates(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"a"}, model.StatusFailed, mock.Anything).Return(nil)

	ch := newFakeChannel() // nothing registered

	o := New(st, ch, noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.Empty(t, ch.sends)
	st.AssertExpectations(t)
}

func TestRun_SendErrorFallsThroughToNextCandidate(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"a"}, model.StatusSent, mock.Anything).Return(nil)
	st.On("FindPendingByBaseNumber", mock.Anything, baseA).Return([]model.Lead{}, nil)

	ch := newFakeChannel()
	// Both candidate forms are registered; the first send errors.
	ch.registered[baseA] = true
	ch.registered["557199991234"] = true
	ch.sendErrs[baseA] = eris.New("recipient unreachable")

	o := New(st, ch, noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, []string{"557199991234"}, ch.sends)
	st.AssertExpectations(t)
}

func TestRun_AllSendsErrored(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"a"}, model.StatusFailed, mock.Anything).Return(nil)

	ch := newFakeChannel()
	ch.registered[baseA] = true
	ch.sendErrs[baseA] = eris.New("recipient unreachable")

	o := New(st, ch, noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, sum.Sent)
	st.AssertExpectations(t)
}

func TestRun_DeadChannelAbortsBeforeBatch(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA, leadB}, nil)

	ch := newFakeChannel()
	ch.kill(errChannelDead)

	o := New(st, ch, noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, errChannelDead))
	assert.Zero(t, sum.Total)
	// No status was written for the aborted leads.
	st.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ChannelDiesMidRun_PartialSummary(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA, leadC}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"a"}, model.StatusSent, mock.Anything).Return(nil)
	st.On("FindPendingByBaseNumber", mock.Anything, baseA).Return([]model.Lead{}, nil)

	ch := newFakeChannel()
	ch.registered[baseA] = true
	ch.dieAfterSends = 1 // session drops right after the first send

	o := New(st, ch, noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, errChannelDead))

	// The first lead's outcome is preserved in the partial summary.
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.Total)
	st.AssertNotCalled(t, "UpdateStatus", mock.Anything, []string{"c"}, mock.Anything, mock.Anything)
}

func TestRun_FetchError(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return(nil, eris.New("store unavailable"))

	o := New(st, newFakeChannel(), noopPacer{}, nil, 15)
	sum, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, sum.Total)
}

func TestRun_EmptyBatch(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{}, nil)

	sum, err := New(st, newFakeChannel(), noopPacer{}, nil, 15).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}

func TestRun_WriteBackFailureContinues(t *testing.T) {
	st := &mockStore{}
	st.On("FetchPendingBatch", mock.Anything, 15).Return([]model.Lead{leadA, leadB}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"a"}, model.StatusSent, mock.Anything).Return(eris.New("store unavailable"))
	st.On("FindPendingByBaseNumber", mock.Anything, baseA).Return([]model.Lead{}, nil)
	st.On("UpdateStatus", mock.Anything, []string{"b"}, model.StatusFailed, mock.Anything).Return(nil)

	ch := newFakeChannel()
	ch.registered[baseA] = true

	sum, err := New(st, ch, noopPacer{}, nil, 15).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	st.AssertExpectations(t)
}

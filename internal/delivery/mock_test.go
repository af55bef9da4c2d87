package delivery

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FetchPendingBatch(ctx context.Context, limit int) ([]model.Lead, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) UpdateStatus(ctx context.Context, ids []string, status model.DeliveryStatus, at time.Time) error {
	args := m.Called(ctx, ids, status, at)
	return args.Error(0)
}

func (m *mockStore) FindPendingByBaseNumber(ctx context.Context, base string) ([]model.Lead, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) InsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	args := m.Called(ctx, leads)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) CountByStatus(ctx context.Context) (map[model.DeliveryStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.DeliveryStatus]int), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Channel Fake ---

// fakeChannel is a scriptable Channel: registered numbers answer true,
// numbers in sendErrs fail their send, and closing done simulates a dead
// session.
type fakeChannel struct {
	registered map[string]bool
	checkErr   error
	sendErrs   map[string]error
	sends      []string
	done       chan struct{}
	err        error
	// dieAfterSends closes done once this many sends completed (0 = never).
	dieAfterSends int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		registered: map[string]bool{},
		sendErrs:   map[string]error{},
		done:       make(chan struct{}),
	}
}

func (f *fakeChannel) IsRegistered(ctx context.Context, number string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.registered[number], nil
}

func (f *fakeChannel) Send(ctx context.Context, number, text string) (string, error) {
	if err, ok := f.sendErrs[number]; ok {
		return "", err
	}
	f.sends = append(f.sends, number)
	if f.dieAfterSends > 0 && len(f.sends) >= f.dieAfterSends {
		f.kill(errChannelDead)
	}
	return "msg-" + number, nil
}

func (f *fakeChannel) Done() <-chan struct{} { return f.done }

func (f *fakeChannel) Err() error { return f.err }

func (f *fakeChannel) kill(err error) {
	select {
	case <-f.done:
	default:
		f.err = err
		close(f.done)
	}
}

// --- Pacer Fake ---

type noopPacer struct{}

func (noopPacer) Wait(ctx context.Context) error { return nil }

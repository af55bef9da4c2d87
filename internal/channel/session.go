// Package channel models the messaging session lifecycle as an explicit
// state machine over the gateway's event stream. The delivery run is gated
// on the session reaching Ready; auth failure or disconnection is fatal for
// the whole run.
package channel

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/NicolasYMonteiro/ProspectingAutomation/pkg/whatsapp"
)

// State is a session lifecycle state.
type State int

const (
	// StateAwaitingPairing is the initial state, before the pairing
	// handshake completes.
	StateAwaitingPairing State = iota
	// StateAuthenticated means credentials were accepted but the session
	// is not yet usable.
	StateAuthenticated
	// StateReady means the session can verify and send.
	StateReady
	// StateDisconnected is terminal; no further operations are possible.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateAwaitingPairing:
		return "awaiting_pairing"
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ErrAuthFailure is the terminal error for a rejected pairing handshake.
var ErrAuthFailure = eris.New("channel: authentication failed")

// ErrDisconnected is the terminal error for a dropped session.
var ErrDisconnected = eris.New("channel: disconnected")

// ErrNotReady is returned for operations attempted outside the Ready state.
var ErrNotReady = eris.New("channel: session not ready")

// Session owns the single authenticated gateway session for a run. It must
// not be driven concurrently; the orchestrator is its only caller.
type Session struct {
	gw whatsapp.Client

	mu    sync.Mutex
	state State
	err   error

	ready chan struct{}
	done  chan struct{}
}

// NewSession wraps the gateway client in a lifecycle-tracking session.
func NewSession(gw whatsapp.Client) *Session {
	return &Session{
		gw:    gw,
		state: StateAwaitingPairing,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Open starts consuming the gateway event stream. It returns once the
// stream is established; lifecycle transitions happen in the background.
func (s *Session) Open(ctx context.Context) error {
	events, err := s.gw.Events(ctx)
	if err != nil {
		return eris.Wrap(err, "channel: open session")
	}

	go s.consume(ctx, events)
	return nil
}

func (s *Session) consume(ctx context.Context, events <-chan whatsapp.Event) {
	for {
		select {
		case <-ctx.Done():
			s.fail(eris.Wrap(ctx.Err(), "channel: context canceled"))
			return
		case ev, ok := <-events:
			if !ok {
				// Stream ended without an explicit disconnect event.
				s.fail(ErrDisconnected)
				return
			}
			if terminal := s.handle(ev); terminal {
				s.drain(ctx, events)
				return
			}
		}
	}
}

// drain keeps reading the stream after a terminal transition so the
// producer never blocks on an unconsumed event.
func (s *Session) drain(ctx context.Context, events <-chan whatsapp.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}
	}
}

// handle applies one event to the state machine. It returns true when the
// session has reached a terminal state.
func (s *Session) handle(ev whatsapp.Event) bool {
	switch ev.Type {
	case whatsapp.EventPairingChallenge:
		zap.L().Info("channel: pairing challenge received, scan to authenticate",
			zap.String("challenge", ev.Data),
		)
	case whatsapp.EventAuthenticated:
		s.transition(StateAuthenticated)
		zap.L().Info("channel: authenticated")
	case whatsapp.EventReady:
		if s.State() != StateReady {
			s.transition(StateReady)
			close(s.ready)
			zap.L().Info("channel: session ready")
		}
	case whatsapp.EventAuthFailure:
		s.fail(eris.Wrapf(ErrAuthFailure, "reason: %s", ev.Data))
		return true
	case whatsapp.EventDisconnected:
		s.fail(ErrDisconnected)
		return true
	default:
		zap.L().Debug("channel: ignoring event", zap.String("type", string(ev.Type)))
	}
	return false
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = to
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.state = StateDisconnected
	s.err = err
	close(s.done)
	zap.L().Warn("channel: session closed", zap.Error(err))
}

// Ready is closed once the session reaches the Ready state.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the session terminates for any reason.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error after Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRegistered checks a candidate identifier against the network. A
// transport error while the session is still alive is treated as "not
// registered" so a flaky check never aborts the batch; a dead session
// surfaces its terminal error instead.
func (s *Session) IsRegistered(ctx context.Context, number string) (bool, error) {
	if s.State() != StateReady {
		return false, s.terminalOr(ErrNotReady)
	}

	ok, err := s.gw.IsRegistered(ctx, number)
	if err != nil {
		select {
		case <-s.done:
			return false, s.terminalOr(ErrDisconnected)
		default:
		}
		zap.L().Warn("channel: registration check failed, treating as unregistered",
			zap.String("number", number),
			zap.Error(err),
		)
		return false, nil
	}
	return ok, nil
}

// Send delivers text to the identifier via the gateway.
func (s *Session) Send(ctx context.Context, number, text string) (string, error) {
	if s.State() != StateReady {
		return "", s.terminalOr(ErrNotReady)
	}
	return s.gw.Send(ctx, number, text)
}

func (s *Session) terminalOr(fallback error) error {
	if err := s.Err(); err != nil {
		return err
	}
	return fallback
}

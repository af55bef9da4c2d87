// Package delivery drives the outreach run: it pulls a bounded batch of
// pending leads and, strictly sequentially, derives candidate numbers,
// verifies them against the network, sends the pitch, records the outcome
// and collapses duplicate leads, pacing between iterations.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/ledger"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/phone"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
)

// Channel is the messaging session surface the orchestrator drives.
// Implemented by channel.Session.
type Channel interface {
	IsRegistered(ctx context.Context, number string) (bool, error)
	Send(ctx context.Context, number, text string) (string, error)
	Done() <-chan struct{}
	Err() error
}

// Pacer spaces lead-processing iterations.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Orchestrator owns the store connection and channel session for the
// duration of one run. It is the only writer; no internal locking is
// needed beyond the store's own guarantees.
type Orchestrator struct {
	store      store.Store
	channel    Channel
	pacer      Pacer
	templates  *TemplateRegistry
	batchLimit int
}

// New creates an Orchestrator.
func New(st store.Store, ch Channel, p Pacer, templates *TemplateRegistry, batchLimit int) *Orchestrator {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if batchLimit <= 0 {
		batchLimit = 15
	}
	return &Orchestrator{
		store:      st,
		channel:    ch,
		pacer:      p,
		templates:  templates,
		batchLimit: batchLimit,
	}
}

// Run processes one batch of pending leads. It always returns a summary,
// partial when a channel-fatal error cuts the run short; per-lead failures
// never abort the batch.
func (o *Orchestrator) Run(ctx context.Context) (model.RunSummary, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	led := ledger.New()

	leads, err := o.store.FetchPendingBatch(ctx, o.batchLimit)
	if err != nil {
		return led.Summary(), eris.Wrap(err, "delivery: fetch pending batch")
	}
	if len(leads) == 0 {
		log.Info("delivery: no pending leads")
		return led.Summary(), nil
	}
	log.Info("delivery: starting run", zap.Int("batch_size", len(leads)))

	// Leads collapsed as duplicates mid-run; skipped without a send attempt.
	collapsed := make(map[string]struct{})

	for _, lead := range leads {
		if err := o.checkChannel(ctx); err != nil {
			return led.Summary(), err
		}
		if _, ok := collapsed[lead.ID]; ok {
			continue
		}

		leadLog := log.With(zap.String("lead_id", lead.ID), zap.String("phone", lead.Phone))
		outcome := o.deliver(ctx, lead, leadLog)

		// A lead failure caused by the session dying must abort the run
		// without writing a failed status for the in-flight lead.
		if !outcome.Success {
			if err := o.checkChannel(ctx); err != nil {
				return led.Summary(), err
			}
		}

		if outcome.Success {
			o.writeBack(ctx, []string{lead.ID}, model.StatusSent, leadLog)
			led.RecordSent(lead)
			leadLog.Info("delivery: lead contacted", zap.Int("messages", len(outcome.Sent)))

			n := o.resolveDuplicates(ctx, lead, collapsed, leadLog)
			led.RecordDuplicates(n)
		} else {
			o.writeBack(ctx, []string{lead.ID}, model.StatusFailed, leadLog)
			led.RecordFailed(lead)
			leadLog.Warn("delivery: lead failed", zap.String("reason", outcome.Error))
		}

		if err := o.pacer.Wait(ctx); err != nil {
			return led.Summary(), eris.Wrap(err, "delivery: pacing interrupted")
		}
	}

	sum := led.Summary()
	log.Info("delivery: run complete",
		zap.Int("sent", sum.Sent),
		zap.Int("failed", sum.Failed),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("total", sum.Total),
	)
	return sum, nil
}

// deliver attempts one lead: candidate generation, registration checks in
// candidate order, then a send to every registered candidate. A lead
// succeeds when at least one send goes through.
func (o *Orchestrator) deliver(ctx context.Context, lead model.Lead, log *zap.Logger) model.DeliveryOutcome {
	candidates := phone.Candidates(lead.Phone)
	if len(candidates) == 0 {
		return model.DeliveryOutcome{Error: "no valid candidate formats"}
	}

	var registered []string
	for _, c := range candidates {
		ok, err := o.channel.IsRegistered(ctx, c)
		if err != nil {
			return model.DeliveryOutcome{Error: err.Error()}
		}
		if ok {
			registered = append(registered, c)
		}
	}
	if len(registered) == 0 {
		return model.DeliveryOutcome{Error: "no registered candidates"}
	}

	text := o.templates.Render(lead)

	var sent []model.SentMessage
	for _, number := range registered {
		msgID, err := o.channel.Send(ctx, number, text)
		if err != nil {
			// A failed candidate does not cancel the remaining ones.
			log.Warn("delivery: send failed", zap.String("number", number), zap.Error(err))
			continue
		}
		sent = append(sent, model.SentMessage{Number: number, MessageID: msgID})
	}
	if len(sent) == 0 {
		return model.DeliveryOutcome{Error: "all sends errored"}
	}

	return model.DeliveryOutcome{Success: true, Sent: sent}
}

// resolveDuplicates marks every other pending lead sharing the contacted
// lead's base number as sent, without a separate delivery attempt, and
// returns how many were collapsed.
func (o *Orchestrator) resolveDuplicates(ctx context.Context, lead model.Lead, collapsed map[string]struct{}, log *zap.Logger) int {
	base, ok := phone.BaseNumber(lead.Phone)
	if !ok {
		return 0
	}

	dups, err := o.store.FindPendingByBaseNumber(ctx, base)
	if err != nil {
		log.Warn("delivery: duplicate lookup failed", zap.String("base", base), zap.Error(err))
		return 0
	}

	var ids []string
	for _, d := range dups {
		if d.ID == lead.ID {
			continue
		}
		ids = append(ids, d.ID)
	}
	if len(ids) == 0 {
		return 0
	}

	o.writeBack(ctx, ids, model.StatusSent, log)
	for _, id := range ids {
		collapsed[id] = struct{}{}
	}
	log.Info("delivery: duplicates collapsed", zap.String("base", base), zap.Int("count", len(ids)))
	return len(ids)
}

// writeBack persists a status transition. Failures are logged and the run
// continues best-effort; a lead whose sent status failed to persist may be
// re-attempted in a future run.
func (o *Orchestrator) writeBack(ctx context.Context, ids []string, status model.DeliveryStatus, log *zap.Logger) {
	if err := o.store.UpdateStatus(ctx, ids, status, time.Now().UTC()); err != nil {
		log.Error("delivery: status write-back failed",
			zap.Strings("lead_ids", ids),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// checkChannel returns the channel's terminal error once the session has
// died, or the context error on cancellation.
func (o *Orchestrator) checkChannel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "delivery: run canceled")
	case <-o.channel.Done():
		return eris.Wrap(o.channel.Err(), "delivery: channel closed")
	default:
		return nil
	}
}

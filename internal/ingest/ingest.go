// Package ingest populates the lead store from local search results. Only
// places without a website become leads; pages are fetched with a pacing
// delay and niches run with bounded concurrency.
package ingest

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/phone"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
	"github.com/NicolasYMonteiro/ProspectingAutomation/pkg/places"
)

// Pacer spaces successive page fetches.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Options configures an ingestion run.
type Options struct {
	Location    string
	Coordinates string
	Language    string
	MaxPages    int
	// MaxConcurrentNiches bounds the niche fan-out. Defaults to 1.
	MaxConcurrentNiches int
}

// Report summarizes an ingestion run.
type Report struct {
	Inserted int64
	Skipped  int // places with a website
	PerNiche map[string]int64
}

// Ingestor pulls leads for a set of niches and bulk-inserts them.
type Ingestor struct {
	store  store.Store
	search places.Client
	pacer  Pacer
	opts   Options
}

// New creates an Ingestor.
func New(st store.Store, search places.Client, p Pacer, opts Options) *Ingestor {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.MaxConcurrentNiches <= 0 {
		opts.MaxConcurrentNiches = 1
	}
	return &Ingestor{store: st, search: search, pacer: p, opts: opts}
}

// Run ingests leads for every niche. Per-niche search errors stop that
// niche's paging but do not fail the run; store errors do.
func (in *Ingestor) Run(ctx context.Context, niches []string) (*Report, error) {
	report := &Report{PerNiche: make(map[string]int64, len(niches))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.MaxConcurrentNiches)

	for _, niche := range niches {
		g.Go(func() error {
			leads, skipped := in.collect(gctx, niche)

			n, err := in.store.InsertLeads(gctx, leads)
			if err != nil {
				return eris.Wrapf(err, "ingest: insert leads for %s", niche)
			}

			mu.Lock()
			report.Inserted += n
			report.Skipped += skipped
			report.PerNiche[niche] = n
			mu.Unlock()

			zap.L().Info("ingest: niche done",
				zap.String("niche", niche),
				zap.Int64("inserted", n),
				zap.Int("skipped", skipped),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

// collect pages through search results for one niche, converting qualifying
// places into leads. A page error or an empty page ends the paging.
func (in *Ingestor) collect(ctx context.Context, niche string) ([]model.Lead, int) {
	log := zap.L().With(zap.String("niche", niche))

	var leads []model.Lead
	var skipped int
	for page := 0; page < in.opts.MaxPages; page++ {
		if err := in.pacer.Wait(ctx); err != nil {
			break
		}

		resp, err := in.search.SearchLocal(ctx, places.SearchRequest{
			Query:       niche,
			Location:    in.opts.Location,
			Coordinates: in.opts.Coordinates,
			Language:    in.opts.Language,
			Page:        page,
		})
		if err != nil {
			log.Warn("ingest: search page failed", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(resp.Places) == 0 {
			break
		}

		for _, p := range resp.Places {
			if p.Website != "" {
				skipped++
				continue
			}
			leads = append(leads, toLead(p, niche))
		}
	}
	return leads, skipped
}

func toLead(p places.Place, niche string) model.Lead {
	lead := model.Lead{
		Name:    p.Title,
		Phone:   p.Phone,
		Address: p.Address,
		Niche:   niche,
		Status:  model.StatusPending,
	}
	if p.PlaceID != "" {
		lead.MapsURL = "https://www.google.com/maps/place/?q=place_id:" + p.PlaceID
	}
	if base, ok := phone.BaseNumber(p.Phone); ok {
		lead.BaseNumber = base
	}
	return lead
}

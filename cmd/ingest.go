package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/ingest"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/pacer"
	"github.com/NicolasYMonteiro/ProspectingAutomation/pkg/places"
)

var (
	ingestNiches   []string
	ingestLocation string
	ingestMaxPages int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape local search results into the lead store",
	Long:  "Searches Google Maps for each configured niche and stores businesses without a website as pending leads.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Places.Key == "" {
			return eris.New("places API key is required (PROSPECT_PLACES_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		search := places.NewClient(cfg.Places.Key,
			places.WithBaseURL(cfg.Places.BaseURL),
		)

		niches := ingestNiches
		if len(niches) == 0 {
			niches = cfg.Ingest.Niches
		}
		location := ingestLocation
		if location == "" {
			location = cfg.Ingest.Location
		}
		maxPages := ingestMaxPages
		if maxPages == 0 {
			maxPages = cfg.Ingest.MaxPages
		}

		p := pacer.New(time.Duration(cfg.Ingest.PageIntervalSecs) * time.Second)

		ing := ingest.New(st, search, p, ingest.Options{
			Location:            location,
			Coordinates:         cfg.Ingest.Coordinates,
			Language:            cfg.Places.Language,
			MaxPages:            maxPages,
			MaxConcurrentNiches: cfg.Ingest.MaxConcurrentNiches,
		})

		report, err := ing.Run(ctx, niches)
		if err != nil {
			return eris.Wrap(err, "ingest run")
		}

		zap.L().Info("ingest complete",
			zap.Int64("inserted", report.Inserted),
			zap.Int("skipped_with_website", report.Skipped),
			zap.Int("niches", len(niches)),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestNiches, "niche", nil, "niche to search (repeatable, default from config)")
	ingestCmd.Flags().StringVar(&ingestLocation, "location", "", "search location (default from config)")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "result pages per niche (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

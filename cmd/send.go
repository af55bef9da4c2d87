package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/channel"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/delivery"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/pacer"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/phone"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
	"github.com/NicolasYMonteiro/ProspectingAutomation/pkg/whatsapp"
)

var (
	sendLimit  int
	sendDryRun bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver the pitch to a batch of pending leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		limit := sendLimit
		if limit == 0 {
			limit = cfg.Send.BatchLimit
		}

		if sendDryRun {
			return dryRun(ctx, st, limit)
		}

		// Load templates
		templates, err := initTemplates()
		if err != nil {
			return err
		}

		// Open the gateway session and wait for it to pair
		gw := whatsapp.NewClient(cfg.Gateway.BaseURL,
			whatsapp.WithToken(cfg.Gateway.Token),
			whatsapp.WithRateLimit(cfg.Gateway.RateRPS),
		)
		session := channel.NewSession(gw)
		if err := session.Open(ctx); err != nil {
			return err
		}

		readyTimeout := time.Duration(cfg.Send.ReadyTimeout) * time.Second
		zap.L().Info("waiting for session", zap.Duration("timeout", readyTimeout))
		select {
		case <-session.Ready():
		case <-session.Done():
			return eris.Wrap(session.Err(), "session failed before ready")
		case <-time.After(readyTimeout):
			return eris.New("timed out waiting for session to become ready")
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "interrupted waiting for session")
		}

		p := pacer.New(
			time.Duration(cfg.Send.IntervalSecs)*time.Second,
			pacer.WithJitter(cfg.Send.JitterFraction),
		)

		o := delivery.New(st, session, p, templates, limit)
		summary, runErr := o.Run(ctx)

		zap.L().Info("send run finished",
			zap.Int("sent", summary.Sent),
			zap.Int("failed", summary.Failed),
			zap.Int("duplicates", summary.Duplicates),
			zap.Int("total", summary.Total),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return eris.Wrap(err, "encode summary")
		}
		return runErr
	},
}

// dryRun prints the batch that a real run would attempt, with the candidate
// numbers derived for each lead.
func dryRun(ctx context.Context, st store.Store, limit int) error {
	leads, err := st.FetchPendingBatch(ctx, limit)
	if err != nil {
		return eris.Wrap(err, "fetch pending batch")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tCANDIDATES")
	for _, lead := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			lead.ID, lead.Name, lead.Phone, strings.Join(phone.Candidates(lead.Phone), ", "))
	}
	return w.Flush()
}

func initTemplates() (*delivery.TemplateRegistry, error) {
	if cfg.Send.TemplatesPath == "" {
		return delivery.DefaultTemplates(), nil
	}
	t, err := delivery.LoadTemplates(cfg.Send.TemplatesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load templates")
	}
	return t, nil
}

func init() {
	sendCmd.Flags().IntVar(&sendLimit, "limit", 0, "batch size (default from config)")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "print the batch that would be contacted without sending")
	rootCmd.AddCommand(sendCmd)
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
)

var (
	leadsStatus string
	leadsNiche  string
	leadsLimit  int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List stored leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status: model.DeliveryStatus(leadsStatus),
			Niche:  leadsNiche,
			Limit:  leadsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPHONE\tNICHE\tSTATUS\tSENT AT")
		for _, lead := range leads {
			sentAt := "-"
			if lead.SentAt != nil {
				sentAt = lead.SentAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				lead.ID, lead.Name, lead.Phone, lead.Niche, lead.Status, sentAt)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		counts, err := st.CountByStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\npending: %d  sent: %d  failed: %d\n",
			counts[model.StatusPending], counts[model.StatusSent], counts[model.StatusFailed])
		return nil
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by status (pending|sent|failed)")
	leadsCmd.Flags().StringVar(&leadsNiche, "niche", "", "filter by niche")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 50, "maximum rows to print")
	rootCmd.AddCommand(leadsCmd)
}

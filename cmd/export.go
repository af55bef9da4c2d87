package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
)

var (
	exportOut    string
	exportStatus string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status: model.DeliveryStatus(exportStatus),
		})
		if err != nil {
			return err
		}

		f := xlsx.NewFile()
		sheet, err := f.AddSheet("Leads")
		if err != nil {
			return eris.Wrap(err, "add sheet")
		}

		header := sheet.AddRow()
		for _, col := range []string{"ID", "Name", "Phone", "Base Number", "Address", "Niche", "Maps URL", "Status", "Sent At", "Created At"} {
			header.AddCell().Value = col
		}

		for _, lead := range leads {
			row := sheet.AddRow()
			row.AddCell().Value = lead.ID
			row.AddCell().Value = lead.Name
			row.AddCell().Value = lead.Phone
			row.AddCell().Value = lead.BaseNumber
			row.AddCell().Value = lead.Address
			row.AddCell().Value = lead.Niche
			row.AddCell().Value = lead.MapsURL
			row.AddCell().Value = string(lead.Status)
			if lead.SentAt != nil {
				row.AddCell().Value = lead.SentAt.Format("2006-01-02 15:04:05")
			} else {
				row.AddCell().Value = ""
			}
			row.AddCell().Value = lead.CreatedAt.Format("2006-01-02 15:04:05")
		}

		if err := f.Save(exportOut); err != nil {
			return eris.Wrap(err, "save workbook")
		}

		zap.L().Info("export complete", zap.String("path", exportOut), zap.Int("leads", len(leads)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "filter by status (pending|sent|failed)")
	rootCmd.AddCommand(exportCmd)
}

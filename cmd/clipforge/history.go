package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"clipforge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past export runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open export history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				cmd.Println("no export history")
				return nil
			}

			printer := message.NewPrinter(language.English)
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				detail := printer.Sprintf("%d bytes", record.FileSize)
				if record.Outcome == history.OutcomeFailed {
					detail = record.ErrorMessage
				}
				rows = append(rows, []string{
					record.FinishedAt.Local().Format(time.DateTime),
					record.Outcome,
					fmt.Sprintf("%s/%s", record.Codec, record.Format),
					fmt.Sprintf("%dx%d@%d", record.Width, record.Height, record.FrameRate),
					record.Quality.String(),
					printer.Sprintf("%d", record.FramesEncoded),
					record.OutputPath,
					detail,
				})
			}
			cmd.Println(renderTable(
				[]string{"Finished", "Outcome", "Codec", "Geometry", "Quality", "Frames", "Output", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show (0 = all)")

	return cmd
}

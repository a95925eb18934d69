package main

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zanzara-go/internal/actionable"
	"zanzara-go/internal/aggregator"
	"zanzara-go/internal/dataset"
	"zanzara-go/internal/media"
	"zanzara-go/internal/processor"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var out string
	var limit int

	cmd := &cobra.Command{
		Use:   "batch MANIFEST.xlsx",
		Short: "Process every file listed in an xlsx manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			records, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			runner, err := ctx.runner()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			total := len(records)
			reports := dataset.Run(cmd.Context(), runner, records, dataset.RunOptions{
				HTTPClient: &http.Client{Timeout: cfg.Media.FetchTimeout},
				Fetch:      media.FetchOptions{Limit: cfg.Media.MaxBytes, MaxElapsed: cfg.Media.FetchMaxElapsed},
				Logger:     ctx.log,
				Progress: func(i int, r processor.Report) {
					fmt.Fprintf(w, "[%d/%d] %s: %s (%d ms)\n", i+1, total, r.Source, r.State, r.DurationMs)
				},
			})

			sum := aggregator.Summarize(reports)
			if err := dataset.WriteReport(out, reports, sum); err != nil {
				return err
			}

			rows := [][]string{
				{"Processed", humanize.Comma(int64(sum.Total))},
				{"Succeeded", humanize.Comma(int64(sum.Succeeded))},
				{"Failed", humanize.Comma(int64(sum.Failed))},
				{"Empty transcripts", humanize.Comma(int64(sum.EmptyTranscripts))},
				{"Average duration", fmt.Sprintf("%.0f ms", sum.AvgDurationMs)},
			}
			fmt.Fprintln(w, renderTable([]string{"Batch", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			hint := actionable.ForSummary(sum)
			fmt.Fprintf(w, "%s. %s\n", hint.Insight, hint.Action)
			fmt.Fprintf(w, "Report written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Path of the xlsx report to write")
	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many rows")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show template, example and configuration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			templateStatus := "loaded"
			if _, err := ctx.store.LoadTemplate(); err != nil {
				templateStatus = err.Error()
			}
			set := ctx.store.LoadExamples()
			mocks := []string{}
			if cfg.Mock.Transcribe {
				mocks = append(mocks, "transcription")
			}
			if cfg.Mock.LLM {
				mocks = append(mocks, "analysis")
			}
			if len(mocks) == 0 {
				mocks = append(mocks, "off")
			}

			rows := [][]string{
				{"Prompt template", cfg.Templates.PromptFile, templateStatus},
				{"Examples", cfg.Templates.ExamplesDir, fmt.Sprintf("%d/%d", set.Loaded(), set.Expected)},
				{"Transcription model", cfg.OpenAI.TranscriptionModel, ""},
				{"Analysis model", cfg.OpenAI.AnalysisModel, fmt.Sprintf("temperature %.2f", cfg.OpenAI.Temperature)},
				{"Upload limit", humanize.IBytes(uint64(cfg.Media.MaxBytes)), ""},
				{"API key", yesNo(cfg.OpenAI.APIKey != ""), ""},
				{"Mock", strings.Join(mocks, ", "), ""},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Item", "Value", "Status"}, rows, nil))
			for _, w := range set.Warnings {
				fmt.Fprintln(cmd.OutOrStdout(), "warning:", w.Message)
			}
			return nil
		},
	}
}

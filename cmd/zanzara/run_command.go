package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"zanzara-go/internal/actionable"
	"zanzara-go/internal/media"
	"zanzara-go/internal/processor"
	"zanzara-go/internal/types"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var instructions string
	var transcribeOnly, showPrompt, jsonOut bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Transcribe a media file and write an article from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := args[0]

			var rep processor.Report
			blob, err := media.Open(path, cfg.Media.MaxBytes)
			if err != nil {
				rep = processor.Failed(path, types.FileDetails{Name: path}, transcribeOnly, err)
			} else {
				if !jsonOut {
					d := blob.Details()
					fmt.Fprintf(cmd.OutOrStdout(), "File: %s (%s, %s)\n", d.Name, d.Size, d.MIMEType)
				}
				runner, err := ctx.runner()
				if err != nil {
					return err
				}
				rep = processor.Process(cmd.Context(), runner, processor.Job{
					Source:         path,
					Media:          blob,
					Instructions:   instructions,
					TranscribeOnly: transcribeOnly,
					ShowPrompt:     showPrompt,
				})
			}
			actionable.Annotate(&rep)

			if jsonOut {
				if err := writeJSON(cmd, rep); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), rep)
			}
			if rep.Failed() {
				return errors.New(rep.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Additional instructions for the analysis")
	cmd.Flags().BoolVar(&transcribeOnly, "transcribe-only", false, "Only transcribe, skip the analysis")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "Print the prompt sent to the model")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(w io.Writer, rep processor.Report) {
	section := func(title, body string) {
		fmt.Fprintf(w, "\n== %s ==\n%s\n", title, body)
	}
	if rep.Transcript != "" {
		section("Transcript", rep.Transcript)
	}
	if rep.Prompt != "" {
		section("Prompt", rep.Prompt)
	}
	if rep.Analysis != "" {
		section("Analysis", rep.Analysis)
	}
	if len(rep.Warnings) > 0 {
		lines := make([]string, 0, len(rep.Warnings))
		for _, wr := range rep.Warnings {
			lines = append(lines, "- "+wr.Message)
		}
		section("Warnings", strings.Join(lines, "\n"))
	}
	if rep.Hint != nil {
		body := rep.Hint.Insight + "\n" + rep.Hint.Action
		if rep.Hint.Impact != "" {
			body += "\n" + rep.Hint.Impact
		}
		section("Hint", body)
	}
	fmt.Fprintf(w, "\nstate: %s, %d ms\n", rep.State, rep.DurationMs)
}

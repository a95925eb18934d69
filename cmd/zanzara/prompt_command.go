package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zanzara-go/internal/prompt"
)

// newPromptCommand prints the analysis prompt for a saved transcript. It
// makes no network calls.
func newPromptCommand(ctx *commandContext) *cobra.Command {
	var instructions string

	cmd := &cobra.Command{
		Use:   "prompt TRANSCRIPT_FILE",
		Short: "Print the prompt that would be sent for a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			transcript, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			tmpl, err := ctx.store.LoadTemplate()
			if err != nil {
				return err
			}
			set := ctx.store.LoadExamples()
			for _, w := range set.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w.Message)
			}
			fmt.Fprint(cmd.OutOrStdout(), prompt.Assemble(tmpl, set.Texts, instructions, string(transcript)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Additional instructions for the analysis")
	return cmd
}

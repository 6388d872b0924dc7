package main

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/briefs"
	"dealbrief-backend/internal/generator"
)

type promptReport struct {
	PromptHash string        `json:"prompt_hash"`
	System     string        `json:"system,omitempty"`
	User       string        `json:"user,omitempty"`
	Raw        string        `json:"raw,omitempty"`
	Failure    string        `json:"failure,omitempty"`
	Violations []string      `json:"violations,omitempty"`
	Brief      *briefs.Brief `json:"brief,omitempty"`
}

// newPromptCmd renders the extraction prompt and optionally sends it once to
// the configured generator, validating the output without storing anything.
func newPromptCmd(c *cli) *cobra.Command {
	var (
		file        string
		repairError string
		run         bool
	)
	cmd := &cobra.Command{
		Use:   "prompt [text]",
		Short: "Render the extraction prompt and test it against the generator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDealText(cmd, file, args)
			if err != nil {
				return err
			}
			req := generator.Request{RawText: text, Schema: briefs.JSONSchema()}
			if strings.TrimSpace(repairError) != "" {
				req.Repair = &generator.Repair{ValidationError: repairError, Schema: req.Schema}
			}
			prompt := generator.BuildPrompt(req)
			report := promptReport{PromptHash: prompt.Hash()}
			if !run {
				report.System = prompt.System
				report.User = prompt.User
				return writeJSON(cmd.OutOrStdout(), report)
			}

			gen, err := bootstrap.NewGenerator(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			outcome, err := gen.Generate(cmd.Context(), req)
			if err != nil {
				return eris.Wrap(err, "generate")
			}
			if msg, failed := outcome.FailureMessage(); failed {
				report.Failure = msg
				return writeJSON(cmd.OutOrStdout(), report)
			}
			payload, _ := outcome.Payload()
			report.Raw = string(payload)
			brief, err := briefs.Parse(payload)
			if err != nil {
				var schemaErr *briefs.SchemaError
				if !errors.As(err, &schemaErr) {
					return err
				}
				report.Violations = schemaErr.Violations
			} else {
				report.Brief = &brief
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if len(report.Violations) > 0 {
				return eris.Errorf("output failed validation with %d violation(s)", len(report.Violations))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read deal text from a file, or - for stdin")
	cmd.Flags().StringVar(&repairError, "repair-error", "", "render the repair prompt for this validation error")
	cmd.Flags().BoolVar(&run, "run", false, "send the prompt to the configured generator and validate the output")
	return cmd
}

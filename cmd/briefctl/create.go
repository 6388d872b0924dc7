package main

import (
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/deals"
)

func newCreateCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create [text]",
		Short: "Generate a brief for a deal description",
		Long:  "Reads deal text from the argument, --file, or stdin (--file -) and prints the stored deal as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDealText(cmd, file, args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(app *bootstrap.App) error {
				deal, err := app.Deals.CreateBrief(cmd.Context(), text)
				switch {
				case errors.Is(err, deals.ErrDuplicateInput):
					return eris.New("a deal with this text already exists")
				case err != nil:
					return eris.Wrap(err, "create")
				}
				return writeJSON(cmd.OutOrStdout(), deal)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read deal text from a file, or - for stdin")
	return cmd
}

func readDealText(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", eris.New("pass deal text as an argument or with --file, not both")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", file)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", eris.New("deal text is required")
	}
}

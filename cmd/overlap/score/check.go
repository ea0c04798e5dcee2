package scorecmder

import (
	"github.com/spf13/cobra"
)

const checkLongDesc string = `Check a text against the reference corpus.

Reads a .txt or .docx file (or plain text from stdin with "-") and reports the
5 corpus documents it most resembles, with their similarity percentages, a
preview of each document, and the average similarity of those matches.

By default the check runs on the API server at client.api_target. With
--local the corpus is loaded and indexed in-process first.

Examples:
  overlap check essay.docx
  cat essay.txt | overlap check -
  overlap check essay.txt --format markdown
  overlap check essay.txt --local --source medium_articles_1.csv`

const checkShortDesc string = "Check a text against the corpus"

func NewCheckCmd() *cobra.Command {
	cmder := &scoreCommander{}

	cmd := &cobra.Command{
		Use:   "check <file|->",
		Short: checkShortDesc,
		Long:  checkLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := cmder.writer()
			if err != nil {
				return err
			}

			text, err := readText(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			scorer, release, err := cmder.scorer(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			res, err := scorer.Check(cmd.Context(), text)
			if err != nil {
				return err
			}
			return w.Check(res)
		},
	}

	cmder.addFlags(cmd)

	return cmd
}

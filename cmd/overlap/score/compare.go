package scorecmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/overlap/pkg/bootstrap"
)

const compareLongDesc string = `Compare two texts.

Reports how semantically similar two texts are, as a percentage between 0 and
100. Arguments are .txt or .docx files ("-" reads one of them from stdin), or
the texts themselves with --text.

Examples:
  overlap compare draft.docx source.txt
  overlap compare --text "the cat sat" "a cat was sitting"
  overlap compare a.txt b.txt --local --format json`

const compareShortDesc string = "Compare two texts"

func NewCompareCmd() *cobra.Command {
	cmder := &scoreCommander{}
	var literal bool

	cmd := &cobra.Command{
		Use:   "compare <a> <b>",
		Short: compareShortDesc,
		Long:  compareLongDesc,
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := cmder.writer()
			if err != nil {
				return err
			}

			texts := args
			if !literal {
				texts = make([]string, len(args))
				for i, arg := range args {
					texts[i], err = readText(arg, cmd.InOrStdin())
					if err != nil {
						return err
					}
				}
			}

			// comparing needs no corpus
			scorer, release, err := cmder.scorer(cmd.Context(), bootstrap.WithoutCorpus())
			if err != nil {
				return err
			}
			defer release()

			res, err := scorer.Compare(cmd.Context(), texts[0], texts[1])
			if err != nil {
				return err
			}
			return w.Compare(res)
		},
	}

	cmd.Flags().BoolVarP(&literal, "text", "t", false, "Treat arguments as the texts to compare instead of file paths")
	cmder.addFlags(cmd)

	return cmd
}

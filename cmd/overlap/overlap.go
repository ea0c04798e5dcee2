// Package overlapcmder
package overlapcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/overlap/cmd/overlap/config"
	extractcmder "github.com/papercomputeco/overlap/cmd/overlap/extract"
	scorecmder "github.com/papercomputeco/overlap/cmd/overlap/score"
	servecmder "github.com/papercomputeco/overlap/cmd/overlap/serve"
	versioncmder "github.com/papercomputeco/overlap/cmd/version"
)

const overlapLongDesc string = `Overlap finds semantic overlap between texts.

Compare two texts, or check a text against a reference corpus of articles
to find the documents it most resembles.

Run services using:
  overlap serve                Load the corpus and run the API server

Score texts using:
  overlap check <file|->       Check a text against the corpus
  overlap compare <a> <b>      Compare two texts
  overlap extract <file>       Print the text of a .txt or .docx file`

const overlapShortDesc string = "Overlap - semantic plagiarism detection"

func NewOverlapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "overlap",
		Short:        overlapShortDesc,
		Long:         overlapLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .overlap/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(scorecmder.NewCheckCmd())
	cmd.AddCommand(scorecmder.NewCompareCmd())
	cmd.AddCommand(extractcmder.NewExtractCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

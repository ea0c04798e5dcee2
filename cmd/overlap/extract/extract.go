// Package extractcmder provides the extract command.
package extractcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/overlap/api"
	"github.com/papercomputeco/overlap/api/client"
	"github.com/papercomputeco/overlap/pkg/config"
	"github.com/papercomputeco/overlap/pkg/extract"
)

type extractCommander struct {
	remote    bool
	asJSON    bool
	apiTarget string

	cfg *config.Config
	out io.Writer
}

const extractLongDesc string = `Print the plain text of a .txt or .docx file.

Paragraphs of .docx files are joined with newlines; empty paragraphs are
skipped. With --remote the file is uploaded to the API server's
/api/extract-text endpoint instead of being read locally.

Examples:
  overlap extract essay.docx
  overlap extract essay.docx --json
  overlap extract essay.docx --remote --api-target http://localhost:8000`

const extractShortDesc string = "Print the text of a .txt or .docx file"

func NewExtractCmd() *cobra.Command {
	cmder := &extractCommander{}

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: extractShortDesc,
		Long:  extractLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.Resolve(cmd, config.Flags, []string{config.FlagAPITarget})
			cmder.out = cmd.OutOrStdout()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cmder.extract(cmd, args[0])
			if err != nil {
				return err
			}
			return cmder.print(res)
		},
	}

	cmd.Flags().BoolVar(&cmder.remote, "remote", false, "Extract on the API server")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print {filename, text} as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *extractCommander) extract(cmd *cobra.Command, path string) (*api.ExtractResponse, error) {
	name := filepath.Base(path)

	if c.remote {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		cl, err := client.New(c.cfg.Client.APITarget)
		if err != nil {
			return nil, err
		}
		return cl.Extract(cmd.Context(), name, f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := extract.Extract(data, extract.Ext(name))
	if err != nil {
		return nil, err
	}
	return &api.ExtractResponse{Filename: name, Text: text}, nil
}

func (c *extractCommander) print(res *api.ExtractResponse) error {
	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	_, err := fmt.Fprintln(c.out, res.Text)
	return err
}

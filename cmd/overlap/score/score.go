// Package scorecmder provides the check and compare commands. Both score
// through a running API server by default, or in-process with --local.
package scorecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/overlap/api/client"
	"github.com/papercomputeco/overlap/pkg/bootstrap"
	"github.com/papercomputeco/overlap/pkg/cliui"
	"github.com/papercomputeco/overlap/pkg/config"
	"github.com/papercomputeco/overlap/pkg/extract"
	"github.com/papercomputeco/overlap/pkg/logger"
	"github.com/papercomputeco/overlap/pkg/report"
	"github.com/papercomputeco/overlap/pkg/scoring"
)

// scoreCommander holds the flags shared by check and compare.
type scoreCommander struct {
	local  bool
	format string

	// registry flag targets; values are read back through viper
	apiTarget         string
	sources           []string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	embeddingTimeout  string
	indexProvider     string

	debug  bool
	cfg    *config.Config
	out    io.Writer
	stderr io.Writer
	logger *slog.Logger
}

var scoreFlags = []string{
	config.FlagAPITarget,
	config.FlagSource,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEmbeddingTmo,
	config.FlagIndexProvider,
}

func (c *scoreCommander) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.local, "local", false, "Score in-process instead of calling the API server")
	cmd.Flags().StringVarP(&c.format, "format", "f", string(report.FormatTable), "Output format (table, markdown, json)")

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &c.apiTarget)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagSource, &c.sources)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &c.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &c.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &c.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &c.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTmo, &c.embeddingTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexProvider, &c.indexProvider)
}

// prepare resolves config and the debug flag. Call from PreRunE.
func (c *scoreCommander) prepare(cmd *cobra.Command) error {
	var err error
	c.cfg, err = config.Resolve(cmd, config.Flags, scoreFlags)
	if err != nil {
		return err
	}

	c.debug, _ = cmd.Flags().GetBool("debug")
	c.out = cmd.OutOrStdout()
	c.stderr = cmd.ErrOrStderr()
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(cliui.IsTerminalWriter(c.stderr)),
		logger.WithWriter(c.stderr),
	)
	return nil
}

func (c *scoreCommander) writer() (*report.Writer, error) {
	format, err := report.ParseFormat(c.format)
	if err != nil {
		return nil, err
	}

	return report.NewWriter(c.out, format, cliui.IsTerminalWriter(c.out)), nil
}

// scorer returns the API client, or with --local an in-process pipeline. The
// returned func releases it.
func (c *scoreCommander) scorer(ctx context.Context, opts ...bootstrap.Option) (scoring.Scorer, func(), error) {
	if !c.local {
		cl, err := client.New(c.cfg.Client.APITarget)
		if err != nil {
			return nil, nil, err
		}
		c.logger.Debug("scoring via API", "target", c.cfg.Client.APITarget)
		return cl, func() {}, nil
	}

	if cliui.IsTerminalWriter(c.stderr) {
		opts = append(opts, bootstrap.WithStep(func(msg string, fn func() error) error {
			return cliui.Step(c.stderr, msg, fn)
		}))
	}

	rt, err := bootstrap.New(ctx, c.cfg, c.logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return rt.Pipeline, func() {
		if err := rt.Close(); err != nil {
			c.logger.Warn("error releasing resources", "error", err)
		}
	}, nil
}

// readText returns the text of path: "-" reads stdin as plain text, files
// go through the .txt/.docx extractor.
func readText(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	text, err := extract.Extract(data, extract.Ext(filepath.Base(path)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

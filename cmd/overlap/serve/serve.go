// Package servecmder provides the serve command, which loads the corpus and
// runs the API server.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/overlap/api"
	"github.com/papercomputeco/overlap/pkg/bootstrap"
	"github.com/papercomputeco/overlap/pkg/cliui"
	"github.com/papercomputeco/overlap/pkg/config"
	"github.com/papercomputeco/overlap/pkg/logger"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 15 * time.Second

type serveCommander struct {
	// registry flag targets; values are read back through viper
	listen            string
	sources           []string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	embeddingTimeout  string
	indexProvider     string
	cacheAddr         string
	kafkaBrokers      []string
	kafkaTopic        string

	logFile  string
	jsonLogs bool
	noMCP    bool
	debug    bool

	cfg    *config.Config
	stderr io.Writer
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagSource,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEmbeddingTmo,
	config.FlagIndexProvider,
	config.FlagCacheAddr,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the Overlap API server.

The corpus is loaded once from every configured source and embedded into an
in-process similarity index before the server starts accepting requests.
Sources that are missing or unreadable are skipped with a warning; when none
load, a two document placeholder corpus is used.

Endpoints:
  GET  /                    Status and embedding device
  POST /api/extract-text    Extract text from a .txt or .docx upload
  POST /api/compare-text    Compare two texts
  POST /api/check-text      Check a text against the corpus
  /mcp                      MCP tools compare_texts and check_text

Examples:
  overlap serve
  overlap serve --source medium_articles_1.csv --source s3://corpus/essays.csv
  overlap serve --embedding-provider ollama --embedding-model all-minilm
  overlap serve --index-provider sqlite --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the Overlap API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.Resolve(cmd, config.Flags, serveFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.stderr = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagSource, &cmder.sources)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTmo, &cmder.embeddingTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexProvider, &cmder.indexProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagCacheAddr, &cmder.cacheAddr)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write JSON logs to stderr")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Serve /mcp without any tools")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	var opts []bootstrap.Option
	if cliui.IsTerminalWriter(c.stderr) && !c.jsonLogs {
		opts = append(opts, bootstrap.WithStep(func(msg string, fn func() error) error {
			return cliui.Step(c.stderr, msg, fn)
		}))
	}

	rt, err := bootstrap.New(ctx, c.cfg, c.logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			c.logger.Warn("error releasing resources", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr:  c.cfg.API.Listen,
		CORSOrigins: c.cfg.API.CORSOrigins,
		Device:      rt.Device,
		DisableMCP:  c.noMCP,
	}, rt.Pipeline, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal, cancellation or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// setupLogger logs to stderr, pretty when attached to a terminal, and
// optionally to a JSON log file as well.
func (c *serveCommander) setupLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(cliui.IsTerminalWriter(c.stderr)),
		logger.WithJSON(c.jsonLogs),
		logger.WithWriter(c.stderr),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

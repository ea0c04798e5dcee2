// Package configcmder provides the config command for managing persistent
// overlap configuration stored in the .overlap/ directory.
package configcmder

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/overlap/pkg/config"
)

const configLongDesc string = `Manage persistent overlap configuration.

Configuration is stored as config.toml in the .overlap/ directory and provides
default values for command flags. CLI flags and OVERLAP_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, api.cors_origins, client.api_target, corpus.sources,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  index.provider, cache.redis_addr, events.kafka_brokers, storage.endpoint, ...

List values such as corpus.sources are set as comma separated strings.

Use subcommands to get, set, or list configuration values:
  overlap config set <key> <value>    Set a configuration value
  overlap config get <key>            Get a configuration value
  overlap config list                 List all configuration values

Examples:
  overlap config set embedding.provider ollama
  overlap config set corpus.sources medium_articles_1.csv,s3://corpus/essays.csv
  overlap config get embedding.model
  overlap config list`

const configShortDesc string = "Manage persistent overlap configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func validKeysList() string {
	return strings.Join(config.ValidConfigKeys(), ", ")
}

// mask hides all but the last four characters of a secret.
func mask(value string) string {
	if value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

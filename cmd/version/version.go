// Package versioncmder prints build information stamped in at link time.
package versioncmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/overlap/pkg/utils"
)

// Info is the build metadata printed by the version command.
type Info struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"buildtime"`
}

type versionCommander struct {
	asJSON bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the overlap version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print version info as JSON")

	return cmd
}

func (c *versionCommander) run(cmd *cobra.Command) error {
	info := Info{Version: utils.Version, Sha: utils.Sha, Buildtime: utils.Buildtime}
	out := cmd.OutOrStdout()

	if c.asJSON {
		return json.NewEncoder(out).Encode(info)
	}

	_, err := fmt.Fprintf(out, "Version: %s\nSha: %s\nBuilt at: %s\n", info.Version, info.Sha, info.Buildtime)
	return err
}

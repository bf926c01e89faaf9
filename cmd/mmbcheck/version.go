package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mmbcheck/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		_, err = fmt.Fprint(out, version.Banner())
		return err
	case "json":
		return json.NewEncoder(out).Encode(versionPayload{
			Tool:      "mmbcheck",
			Version:   version.Version,
			GitCommit: version.GitCommit,
			BuildDate: version.BuildDate,
		})
	default:
		return fmt.Errorf("invalid --format value %q (expected pretty|json)", format)
	}
}

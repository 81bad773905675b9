package cmd

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	wamiversion "github.com/wami-rt/wami/internal/version"
)

var minVersion string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the wami version, optionally gated against --min-version",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().StringVar(&minVersion, "min-version", "", "fail if the running binary is older than this semantic version")
}

func runVersion(cmd *cobra.Command, args []string) error {
	current, err := version.NewVersion(wamiversion.GetVersion())
	if err != nil {
		return fmt.Errorf("parsing current version: %w", err)
	}

	if minVersion != "" {
		min, err := version.NewVersion(minVersion)
		if err != nil {
			return fmt.Errorf("parsing --min-version: %w", err)
		}
		if current.LessThan(min) {
			return fmt.Errorf("wami %s is older than required minimum %s", current, min)
		}
	}

	fmt.Println(current)
	return nil
}

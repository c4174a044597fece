package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the CLI version, overridable at build time with
// -ldflags "-X github.com/hiddenpath/relay/cli/commands.Version=v1.2.3".
var Version = "dev"

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOutput {
				return a.outputJSON(map[string]string{
					"version": Version,
					"go":      runtime.Version(),
					"os":      runtime.GOOS,
					"arch":    runtime.GOARCH,
				})
			}
			fmt.Fprintf(a.stdout, "relay %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

// Package cmd is the pibox command line: serve the example host or print
// the order in which its plugins apply.
package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/km-arc/pibox/app"
	kernel "github.com/km-arc/pibox/framework/app"
	"github.com/km-arc/pibox/framework/config"
)

type rootFlags struct {
	envFiles   []string
	configPath string
}

// NewRootCommand builds the pibox command tree.
func NewRootCommand(version string) *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "pibox",
		Short: "PiBox - plugin host for HTTP services",
		Long: `PiBox assembles an HTTP service from plugins. Framework plugins run first,
then third-party components, then the host's own component, so the host
always has the last word.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, ".env files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML configuration file (default $"+config.FileEnv+" or "+config.DefaultFile+")")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newPluginsCommand(flags))

	return rootCmd
}

// newApplication builds the example host with configuration from flags.
func newApplication(flags *rootFlags, logOut io.Writer) (*kernel.Application, error) {
	opts := []kernel.Option{kernel.WithLogOutput(logOut)}
	if flags.configPath != "" {
		src, err := config.LoadPath(flags.configPath, flags.envFiles...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kernel.WithConfigSource(src))
	} else {
		opts = append(opts, kernel.WithEnvFiles(flags.envFiles...))
	}
	return kernel.New(app.Component(), opts...), nil
}

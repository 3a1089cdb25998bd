package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "metacache",
		Short: "Generation-partitioned metadata cache",
		Long: `metacache serves object and element descriptors from a relational
metadata store, cached per code generation.

Configuration is read from --config, or metacache.yaml in the working
directory or /etc/metacache. METACACHE_* environment variables override
file values (METACACHE_STORE_DSN, METACACHE_EPOCH_SOURCE, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand(flags))
	rootCmd.AddCommand(NewDescribeCommand(flags))
	rootCmd.AddCommand(NewEpochCommand(flags))
	rootCmd.AddCommand(NewHashKeyCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/metacache/config"
	"github.com/jonwraymond/metacache/epoch"
)

// NewEpochCommand creates the epoch command
func NewEpochCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch",
		Short: "Inspect or advance the shared generation",
		Long: `Inspect or advance the generation identity shared through Redis.

Bumping starts a new generation in every process reading the same key, so
their next lookups reload descriptors from the store.`,
	}
	cmd.AddCommand(newEpochCurrentCommand(flags))
	cmd.AddCommand(newEpochBumpCommand(flags))
	return cmd
}

func newEpochCurrentCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEpochSource(cmd.Context(), flags, func(ctx context.Context, src epoch.Source) error {
				gen, err := src.Current(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), gen)
				return nil
			})
		},
	}
}

func newEpochBumpCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bump",
		Short: "Start a new generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEpochSource(cmd.Context(), flags, func(ctx context.Context, src epoch.Source) error {
				b, ok := src.(epoch.Bumper)
				if !ok {
					return errors.New("epoch source cannot be bumped")
				}
				gen, err := b.Bump(ctx)
				if err != nil {
					return err
				}
				color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "generation: ")
				fmt.Fprintln(cmd.OutOrStdout(), gen)
				return nil
			})
		},
	}
}

// withEpochSource loads the configuration and runs fn against the shared
// epoch source. A process-local source is rejected: changing it from the
// CLI would not reach any server.
func withEpochSource(ctx context.Context, flags *globalFlags, fn func(context.Context, epoch.Source) error) error {
	cfg, err := config.Load(ctx, flags.configPath)
	if err != nil {
		return err
	}
	if cfg.Epoch.Source != "redis" {
		return fmt.Errorf("epoch source %q is local to each server; use the admin API or configure epoch.source=redis", cfg.Epoch.Source)
	}

	z, logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if z != nil {
		defer z.Sync()
	}
	src, client, err := newEpochSource(ctx, cfg.Epoch, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, src)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/nomcom-feedback/internal/runstate"
)

func newPositionsCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List the positions of this NomCom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cmd, root, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			positions, err := a.entities.Positions(ctx, runstate.New(), force)
			if err != nil {
				return err
			}
			a.printer.PrintPositions(positions)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force-metadata", "m", false, "Refetch positions")
	return cmd
}

func newTopicsCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List the feedback topics of this NomCom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cmd, root, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			topics, err := a.entities.Topics(ctx, runstate.New(), force)
			if err != nil {
				return err
			}
			a.printer.PrintTopics(topics)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force-metadata", "m", false, "Refetch topics")
	return cmd
}

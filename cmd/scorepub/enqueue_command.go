package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scorepub/internal/queue"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue AXIS ENTITY ACTIVITY [ARGUMENT]",
		Short: "Queue a publish request by hand",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			axis, err := queue.ParseAxis(args[0])
			if err != nil {
				return err
			}
			activity, err := axis.ParseActivity(args[2])
			if err != nil {
				return err
			}
			req := queue.NewRequest{Axis: axis, Entity: args[1], Activity: activity}
			if len(args) == 4 {
				req.Argument = args[3]
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			created, err := store.Enqueue(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as #%d\n", req, created.ID)
			return nil
		},
	}
}

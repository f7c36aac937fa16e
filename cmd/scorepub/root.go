package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scorepub/internal/daemonctl"
	"scorepub/internal/daemonrun"
	"scorepub/internal/queue"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		listFlag   bool
		daemonFlag bool
		queryFlag  bool
		detachFlag bool
		logLevel   string
	)

	ctx := newCommandContext(&configFlag)

	axisNames := make([]string, 0, len(queue.Axes()))
	for _, axis := range queue.Axes() {
		axisNames = append(axisNames, string(axis))
	}

	rootCmd := &cobra.Command{
		Use:           "scorepub AXIS",
		Short:         "Publish queued regatta scoring updates",
		Long:          "Drain one publish queue axis (" + strings.Join(axisNames, ", ") + ").",
		Args:          cobra.ExactArgs(1),
		ValidArgs:     axisNames,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := queue.ParseAxis(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			switch {
			case queryFlag:
				return runQuery(cmd, cfg, axis)
			case listFlag:
				return runList(cmd, cfg, axis)
			}

			if detachFlag && !daemonctl.Detached() {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve executable: %w", err)
				}
				result, err := daemonctl.Launch(cmd.Context(), exe, daemonctl.LaunchOptions{
					Axis:   axis,
					LogDir: cfg.Paths.LogDir,
					Args:   os.Args[1:],
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s publisher (pid %d), output in %s\n", axis, result.PID, result.OutputPath)
				return nil
			}

			return daemonrun.Run(cmd.Context(), cfg, axis, daemonrun.Options{
				Continuous: daemonFlag,
				LogLevel:   logLevel,
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVarP(&listFlag, "list", "l", false, "List pending requests per entity without processing")
	rootCmd.Flags().BoolVarP(&daemonFlag, "daemon", "d", false, "Keep polling after the queue drains")
	rootCmd.Flags().BoolVarP(&queryFlag, "query", "q", false, "Exit 2 if a publisher for AXIS is running, 0 otherwise")
	rootCmd.Flags().BoolVar(&detachFlag, "detach", false, "Run in the background in a new session")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	rootCmd.MarkFlagsMutuallyExclusive("list", "query", "daemon")
	rootCmd.MarkFlagsMutuallyExclusive("list", "detach")
	rootCmd.MarkFlagsMutuallyExclusive("query", "detach")

	rootCmd.AddCommand(newEnqueueCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}

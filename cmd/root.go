package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/olehkaliuzhnyi/focus2earn/internal/config"
	"github.com/olehkaliuzhnyi/focus2earn/internal/login"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd(login.DialRPC).ExecuteContext(ctx)
}

func newRootCmd(dial login.DialFunc) *cobra.Command {
	a := &app{dial: dial}

	rootCmd := &cobra.Command{
		Use:           "focusctl",
		Short:         "focusctl: focus-to-earn sessions from the terminal",
		Long:          "focusctl connects a custodial wallet to the focus-to-earn contract, starts and stops focus sessions, claims rewards and reads account figures.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := parseLogLevel(a.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&a.mirrorConsole, "console", false, "mirror the diagnostic console to stderr")

	rootCmd.AddCommand(
		newStatusCmd(a),
		newStartFocusCmd(a),
		newStopFocusCmd(a),
		newClaimCmd(a),
		newClaimInitialCmd(a),
		newApproveCmd(a),
		newDetailsCmd(a),
		newRateCmd(a),
		newInitialRewardCmd(a),
		newFocusCmd(a),
	)

	return rootCmd
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

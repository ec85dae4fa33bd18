// -- cmd/replay.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/internal/artifacts"
	"github.com/hollowpoint9/retrace-cli/internal/browser"
	"github.com/hollowpoint9/retrace-cli/internal/dom"
	"github.com/hollowpoint9/retrace-cli/internal/observability"
	"github.com/hollowpoint9/retrace-cli/internal/replay"
)

func newReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay <action-log>",
		Short: "Re-executes a recorded action log against a live browser",
		Long: `Loads a saved action log and replays it step by step. Secret
placeholders (${NAME}) are resolved from the process environment; the run
aborts at the first step that fails, reporting its index.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args[0])
		},
	}

	replayCmd.Flags().Bool("headless", true, "run the browser headless")
	return replayCmd
}

func runReplay(ctx context.Context, logPath string) error {
	logger := observability.GetLogger()
	cfg := appConfig

	actions, err := artifacts.LoadActions(logPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded action log.",
		zap.String("path", logPath), zap.Int("actions", len(actions)))

	manager, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown reported errors.", zap.Error(err))
		}
	}()

	page, err := manager.NewPage(ctx)
	if err != nil {
		return err
	}

	// Fingerprint locators in the log resolve against a live scan of the
	// page replay has reached.
	history := dom.NewHistory()
	scanner := dom.NewScanner(page, history, cfg.Recorder.MaxScanElements, logger)
	resolver := dom.NewResolver(scanner, logger)

	engine := replay.New(page, resolver.Resolve, logger)
	if err := engine.Run(ctx, actions); err != nil {
		var stepErr *replay.StepError
		if errors.As(err, &stepErr) {
			return fmt.Errorf("step %d (%s) failed: %w",
				stepErr.Index, stepErr.Action.Type, stepErr.Err)
		}
		return err
	}

	fmt.Println("Replay finished:", len(actions), "steps")
	return nil
}

func init() {
	rootCmd.AddCommand(newReplayCmd())
}

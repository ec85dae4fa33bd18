// -- cmd/record.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/internal/artifacts"
	"github.com/hollowpoint9/retrace-cli/internal/browser"
	"github.com/hollowpoint9/retrace-cli/internal/dom"
	"github.com/hollowpoint9/retrace-cli/internal/modectl"
	"github.com/hollowpoint9/retrace-cli/internal/observability"
	"github.com/hollowpoint9/retrace-cli/internal/recorder"
	"github.com/hollowpoint9/retrace-cli/internal/secrets"
	"github.com/hollowpoint9/retrace-cli/internal/store"
)

func newRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record [url]",
		Short: "Opens a browser on the URL and records the actions performed there",
		Long: `Opens a page, injects the capture hooks and records every action
performed until interrupted (Ctrl-C). The collected action log is written
under the artifacts directory, with secret values masked as ${NAME}
placeholders.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), args[0], viper.GetString("task"))
		},
	}

	recordCmd.Flags().String("task", "", "short task description used to name the artifacts")
	recordCmd.Flags().Bool("headless", false, "run the browser headless (unusual for recording)")
	return recordCmd
}

func runRecord(ctx context.Context, url, task string) error {
	logger := observability.GetLogger()
	cfg := appConfig
	if task == "" {
		task = url
	}

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

	history := dom.NewHistory()
	scanner := dom.NewScanner(page, history, cfg.Recorder.MaxScanElements, logger)
	resolver := dom.NewResolver(scanner, logger)
	vault := secrets.NewVault(cfg.Secrets.EnvKeys, logger)
	rec := recorder.New(vault, history, logger)
	control := modectl.New(page, cfg.ManualMode.PromptInterval, logger)

	session := browser.NewSession(page, scanner, resolver, rec, control,
		vault, cfg.ManualMode.Timeout, logger)
	if err := session.Attach(ctx); err != nil {
		return err
	}

	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	if _, err := session.Scan(ctx, false); err != nil {
		logger.Warn("Initial page scan failed.", zap.Error(err))
	}

	// A recording run is human-driven from the start.
	var flipped bool
	if err := page.Evaluate(ctx, "(window.__retraceSetManual(true), true)", &flipped); err != nil {
		logger.Warn("Could not flip the page into manual mode.", zap.Error(err))
		control.HandleModeChange(true, 0)
	}

	logger.Info("Recording. Interact with the page; stop with Ctrl-C.",
		zap.String("url", url), zap.String("task", task))
	<-ctx.Done()

	merged := session.Merged()
	if len(merged) == 0 {
		logger.Warn("Nothing was recorded; no artifact written.")
		return nil
	}

	artifactStore, err := artifacts.NewStore(cfg.Recorder.ArtifactsDir, logger)
	if err != nil {
		return err
	}
	startedAt := time.Now()
	path, err := artifactStore.SaveActions(task, startedAt, merged)
	if err != nil {
		return err
	}
	fmt.Println("Action log written to", path)

	if cfg.Archive.Enabled {
		if err := archiveRun(task, startedAt, rec, logger); err != nil {
			// The on-disk artifact already exists; archiving is best effort.
			logger.Warn("Could not archive the run.", zap.Error(err))
		}
	}
	return nil
}

// archiveRun persists the full run to the Postgres archive.
func archiveRun(task string, at time.Time, rec *recorder.Recorder, logger *zap.Logger) error {
	// The recording context is already cancelled at this point; archive
	// under its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, appConfig.Archive.DSN())
	if err != nil {
		return fmt.Errorf("connecting to archive: %w", err)
	}
	defer pool.Close()

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		return err
	}
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	return st.SaveRun(ctx, &store.Run{
		ID:        uuid.New(),
		Task:      task,
		CreatedAt: at,
		Agent:     rec.Agent(),
		Manual:    rec.Manual(),
		Merged:    rec.Merged(),
	})
}

func init() {
	rootCmd.AddCommand(newRecordCmd())
}

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/cli/config"
	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/amit-mskl/sql-playground/internal/download"
	"github.com/amit-mskl/sql-playground/internal/session"
	"github.com/amit-mskl/sql-playground/internal/state"
	"github.com/amit-mskl/sql-playground/internal/workspace"
	"github.com/spf13/cobra"
)

// userAgent is sent with every backend request. Set by the root command.
var userAgent = "sqlarena"

// SetUserAgent sets the User-Agent used by backend clients.
func SetUserAgent(ua string) { userAgent = ua }

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg        *config.Config
	Logger     *slog.Logger
	Renderer   *output.Renderer
	Store      *state.SQLiteStore
	Client     *arena.Client
	Queue      *activity.Queue // nil when activity logging is disabled
	Gate       *session.Gate
	Workspace  *workspace.Workspace
	Downloader *download.Downloader
}

// NewCommandContext opens the local store, restores the stored session
// and wires the backend client, activity queue and workspace.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg := getConfig()
	logger := config.GetLogger(ctx)

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	client, err := arena.NewClient(arena.Config{
		BaseURL:      cfg.BackendURL,
		AssetBaseURL: cfg.ResolvedAssetURL(),
		Timeout:      cfg.HTTPTimeout,
		UserAgent:    userAgent,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	var queue *activity.Queue
	sink := activity.Discard
	if cfg.Activity.Enabled {
		queue = activity.NewQueue(client, store, activity.Options{
			Buffer:        cfg.Activity.Buffer,
			MaxRetries:    uint64(cfg.Activity.MaxRetries),
			RetryInterval: cfg.Activity.RetryInterval,
			SendTimeout:   cfg.HTTPTimeout,
		}, logger.With("component", "activity"))
		queue.Start(ctx)
		sink = queue
	}

	gate := session.NewGate(client, store, sink, logger)
	if _, err := gate.Restore(ctx); err != nil {
		closeQueue(ctx, queue, cfg, logger)
		_ = store.Close()
		return nil, nil, err
	}

	ws := workspace.New(client, sink, workspace.Options{
		DefaultQuery:  cfg.DefaultQuery,
		ExcludeTables: cfg.ExcludeTables,
	}, logger)
	ws.Bind(gate.Current())

	mode := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		closeQueue(ctx, queue, cfg, logger)
		_ = store.Close()
	}

	return &CommandContext{
		Cfg:        cfg,
		Logger:     logger,
		Renderer:   r,
		Store:      store,
		Client:     client,
		Queue:      queue,
		Gate:       gate,
		Workspace:  ws,
		Downloader: download.New(client, cfg.DownloadDir, sink, logger),
	}, cleanup, nil
}

// NewCommandContextWithoutBackend creates a CommandContext with only
// config, logger and renderer.
func NewCommandContextWithoutBackend(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// RequireUser returns the signed-in user.
func (c *CommandContext) RequireUser() (*arena.User, error) {
	return c.Gate.Require()
}

// Activate requires a session and loads the table list. A listing failure
// is logged and leaves the sidebar empty.
func (c *CommandContext) Activate(ctx context.Context) (*arena.User, error) {
	u, err := c.Gate.Require()
	if err != nil {
		return nil, err
	}
	if err := c.Workspace.Activate(ctx, u); err != nil {
		c.Logger.Debug("continuing without table list", "error", err)
	}
	return u, nil
}

// Logout ends the session in the gate and the workspace.
func (c *CommandContext) Logout(ctx context.Context) error {
	if err := c.Gate.Logout(ctx); err != nil {
		return err
	}
	c.Workspace.Logout()
	return nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, or defaults when no
// configuration was loaded (commands built outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func closeQueue(ctx context.Context, q *activity.Queue, cfg *config.Config, logger *slog.Logger) {
	if q == nil {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Activity.FlushTimeout)
	defer cancel()
	if err := q.Close(flushCtx); err != nil {
		logger.Warn("activity log not fully flushed", "error", err)
	}
}

func printErr(cmd *cobra.Command, err error) {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

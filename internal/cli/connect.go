package cli

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/config"
	"github.com/roach88/modpack/internal/livesync"
)

// ConnectOptions holds flags for the connect command.
type ConnectOptions struct {
	*RootOptions
	Push bool
}

// NewConnectCommand creates the connect command.
func NewConnectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConnectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Run a live sync session",
		Long: `Connect to the relay named in the sync settings and stay connected until
interrupted. Every local change is broadcast to the other peers as a full
snapshot, and every snapshot received from a peer replaces the local
collections it carries.

Editing the config file while connected reconnects with the new settings.
A dropped connection is not retried; edit the config (or restart) to try
again.

Examples:
  modpack connect
  modpack connect --push   # send the local database once connected`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Push, "push", false, "broadcast the local snapshot as soon as the connection is up")

	return cmd
}

func runConnect(opts *ConnectOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfgStore, err := openConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read config", err)
	}
	cfg, err := cfgStore.Load()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to decode config", err)
	}
	if !cfg.Enabled || cfg.APIURL == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric,
			errSyncDisabled.Error(), nil)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	sess, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("failed to open database %s", opts.Database), err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	var (
		ch       *livesync.Channel
		pushOnce sync.Once
	)
	notifier := livesync.NotifierFunc(func(level livesync.Level, title, message string) {
		fmt.Fprintf(f.GetErrWriter(), "[%s] %s: %s\n", level, title, message)
		if level == livesync.LevelSuccess && opts.Push {
			pushOnce.Do(ch.ForceSync)
		}
	})
	ch = livesync.New(sess.manager,
		livesync.WithNotifier(notifier),
		livesync.WithStatusListener(func(st livesync.Status) {
			slog.Info("sync status", "status", string(st))
		}),
	)
	defer ch.Close()

	sess.manager.SetBroadcaster(ch)
	defer sess.manager.SetBroadcaster(nil)

	ch.Configure(cfg)
	cfgStore.Watch(func(next config.Sync) {
		slog.Info("reconnecting with new settings", "url", next.APIURL, "enabled", next.Enabled)
		ch.Configure(next)
	})

	slog.Info("sync session started", "db", opts.Database, "url", cfg.APIURL, "user", cfg.Username)
	fmt.Fprintf(cmd.OutOrStdout(), "Syncing %s with %s\n", opts.Database, cfg.APIURL)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	<-ctx.Done()

	slog.Info("sync session stopped")
	return nil
}

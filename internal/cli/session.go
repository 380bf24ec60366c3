package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/modpack/internal/livesync"
	"github.com/roach88/modpack/internal/state"
	"github.com/roach88/modpack/internal/store"
)

// syncConnectTimeout bounds how long --sync waits for the relay.
const syncConnectTimeout = 10 * time.Second

var errSyncDisabled = errors.New("live sync is disabled; run 'modpack config set --enabled --url <relay>'")

// session is an open database with a loaded manager and its persister
// running.
type session struct {
	store   *store.Store
	manager *state.Manager
	channel *livesync.Channel // set by attachSync
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// openSession opens the database named by --db, loads it (seeding the
// defaults into a new database) and starts the persister.
func openSession(ctx context.Context, opts *RootOptions, mopts ...state.Option) (*session, error) {
	slog.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, err
	}

	m := state.New(st, mopts...)
	if err := m.Load(ctx); err != nil {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g := new(errgroup.Group)
	g.Go(func() error { return m.Run(runCtx) })

	return &session{store: st, manager: m, group: g, cancel: cancel}, nil
}

// attachSync connects to the relay named in the sync settings and makes
// the connection the manager's broadcaster, so every change the command
// makes is sent to the other peers. It returns once the connection is up.
func (s *session) attachSync(ctx context.Context, opts *RootOptions) error {
	cfgStore, err := openConfig(opts)
	if err != nil {
		return err
	}
	cfg, err := cfgStore.Load()
	if err != nil {
		return err
	}
	if !cfg.Enabled || cfg.APIURL == "" {
		return errSyncDisabled
	}

	statuses := make(chan livesync.Status, 8)
	ch := livesync.New(s.manager, livesync.WithStatusListener(func(st livesync.Status) {
		select {
		case statuses <- st:
		default:
		}
	}))
	ch.Configure(cfg)

	timer := time.NewTimer(syncConnectTimeout)
	defer timer.Stop()
	for {
		select {
		case st := <-statuses:
			switch st {
			case livesync.StatusSuccess:
				s.channel = ch
				s.manager.SetBroadcaster(ch)
				slog.Debug("sync attached", "url", cfg.APIURL, "user", cfg.Username)
				return nil
			case livesync.StatusIdle:
				ch.Close()
				return fmt.Errorf("could not reach relay %s", cfg.APIURL)
			}
		case <-timer.C:
			ch.Close()
			return fmt.Errorf("timed out connecting to relay %s", cfg.APIURL)
		case <-ctx.Done():
			ch.Close()
			return ctx.Err()
		}
	}
}

// Close disconnects from the relay, drains queued writes and closes the
// database.
func (s *session) Close() error {
	if s.channel != nil {
		s.manager.SetBroadcaster(nil)
		s.channel.Close()
	}
	s.manager.Close()
	err := s.group.Wait()
	s.cancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if closeErr := s.store.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close database: %w", closeErr)
	}
	return err
}

// addSyncFlag registers --sync on a command that changes the database.
func addSyncFlag(cmd *cobra.Command, opts *RootOptions) {
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "send the change to live sync peers through the configured relay")
}

// withSession opens a session, runs fn and closes the session. A close
// error is reported only when fn succeeded. With --sync the session is
// connected to the relay before fn runs.
func withSession(cmd *cobra.Command, opts *RootOptions, f *OutputFormatter, fn func(*session) error) error {
	ctx := commandContext(cmd)
	sess, err := openSession(ctx, opts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("failed to open database %s", opts.Database), err)
	}

	if opts.Sync {
		if err := sess.attachSync(ctx, opts); err != nil {
			if closeErr := sess.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
			return f.Fail(ExitCommandError, ErrCodeSync, "live sync unavailable", err)
		}
	}

	runErr := fn(sess)
	if closeErr := sess.Close(); closeErr != nil {
		slog.Error("error closing database", "error", closeErr)
		if runErr == nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to save changes", closeErr)
		}
	}
	return runErr
}

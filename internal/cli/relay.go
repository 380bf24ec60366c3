package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/modpack/internal/relay"
)

// DefaultRelayAddr is where the relay listens unless --addr is given.
const DefaultRelayAddr = ":8787"

const relayShutdownTimeout = 5 * time.Second

// RelayOptions holds flags for the relay command.
type RelayOptions struct {
	*RootOptions
	Addr string
}

// NewRelayCommand creates the relay command.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a sync relay",
		Long: `Run the hub that "modpack connect" sessions join. Every snapshot a peer
sends is forwarded unchanged to every other connected peer. Credentials
are logged, never checked, and nothing is stored.

Example:
  modpack relay --addr :8787`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", DefaultRelayAddr, "listen address")

	return cmd
}

func runRelay(opts *RelayOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to listen on %s", opts.Addr), err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	hub := relay.New()
	srv := &http.Server{Handler: hub, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), relayShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("relay listening", "addr", ln.Addr().String())
	fmt.Fprintf(cmd.OutOrStdout(), "Relay listening on %s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := g.Wait(); err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "relay error", err)
	}

	slog.Info("relay stopped gracefully")
	return nil
}

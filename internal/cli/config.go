package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/config"
)

// ConfigView is the printable form of the sync settings.
type ConfigView struct {
	Path         string `json:"path"`
	Enabled      bool   `json:"enabled"`
	APIURL       string `json:"apiUrl"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SyncInterval int    `json:"syncInterval"`
}

func newConfigView(path string, cfg config.Sync) ConfigView {
	cfg = cfg.Redacted()
	return ConfigView{
		Path:         path,
		Enabled:      cfg.Enabled,
		APIURL:       cfg.APIURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SyncInterval: cfg.SyncInterval,
	}
}

func (v ConfigView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "file:          %s\n", v.Path)
	fmt.Fprintf(&b, "enabled:       %t\n", v.Enabled)
	fmt.Fprintf(&b, "api_url:       %s\n", v.APIURL)
	fmt.Fprintf(&b, "username:      %s\n", v.Username)
	fmt.Fprintf(&b, "password:      %s\n", v.Password)
	fmt.Fprintf(&b, "sync_interval: %d", v.SyncInterval)
	return b.String()
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the sync settings",
		Long: `The sync settings live in a YAML file ($HOME/.modpack/sync.yaml unless
--config names another). MODPACK_ENABLED, MODPACK_API_URL,
MODPACK_USERNAME, MODPACK_PASSWORD and MODPACK_SYNC_INTERVAL override the
file. sync_interval is stored but nothing schedules on it.`,
	}

	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigSetCommand(rootOpts))

	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the effective sync settings (password masked)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			store, err := openConfig(rootOpts)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read config", err)
			}
			cfg, err := store.Load()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to decode config", err)
			}
			return f.Success(newConfigView(store.Path(), cfg))
		},
	}
}

// ConfigSetOptions holds flags for config set.
type ConfigSetOptions struct {
	*RootOptions
	Enabled  bool
	URL      string
	Username string
	Password string
	Interval int
}

func newConfigSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change sync settings",
		Long: `Change the settings named by flags; the others keep their values.

Examples:
  modpack config set --enabled --url http://localhost:8787 --username alice
  modpack config set --enabled=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "enable live sync")
	cmd.Flags().StringVar(&opts.URL, "url", "", "relay URL (http, https, ws or wss)")
	cmd.Flags().StringVar(&opts.Username, "username", "", "name sent to the relay")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password sent to the relay")
	cmd.Flags().IntVar(&opts.Interval, "interval", config.DefaultSyncInterval, "sync interval in seconds (stored only)")

	return cmd
}

func runConfigSet(opts *ConfigSetOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	updates := []struct {
		flag  string
		key   string
		value string
	}{
		{"enabled", config.KeyEnabled, strconv.FormatBool(opts.Enabled)},
		{"url", config.KeyAPIURL, opts.URL},
		{"username", config.KeyUsername, opts.Username},
		{"password", config.KeyPassword, opts.Password},
		{"interval", config.KeySyncInterval, strconv.Itoa(opts.Interval)},
	}

	store, err := openConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read config", err)
	}

	changed := 0
	for _, u := range updates {
		if !cmd.Flags().Changed(u.flag) {
			continue
		}
		if err := store.Set(u.key, u.value); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("failed to set %s", u.key), err)
		}
		f.VerboseLog("Set %s", u.key)
		changed++
	}
	if changed == 0 {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "nothing to set; pass at least one flag", nil)
	}

	cfg, err := store.Load()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to decode config", err)
	}
	return f.Success(newConfigView(store.Path(), cfg))
}

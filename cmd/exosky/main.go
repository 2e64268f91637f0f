// Command exosky shows the night sky as seen from an exoplanet and lets users
// draw and share constellations on it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/litescript/exosky/internal/catalog"
	"github.com/litescript/exosky/internal/config"
	"github.com/litescript/exosky/internal/logging"
	"github.com/litescript/exosky/internal/state"
	"github.com/litescript/exosky/internal/ui"
	"github.com/litescript/exosky/internal/version"
)

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"api-url":            "api_url",
	"limiting-magnitude": "limiting_magnitude",
	"exoplanet-limit":    "exoplanet_limit",
	"timeout":            "timeout",
	"log-level":          "log_level",
	"log-file":           "log_file",
	"download-dir":       "download_dir",
}

// app carries what every command needs once configuration is loaded.
type app struct {
	v          *viper.Viper
	configFile string
	planet     string

	cfg      config.Config
	logger   *logging.Logger
	closeLog func() error
	client   *catalog.Client

	stdout     io.Writer
	stderr     io.Writer
	httpClient *http.Client
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		logger: logging.Discard(),
		stdout: stdout,
		stderr: stderr,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := run(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command line and releases the log file afterwards.
func run(ctx context.Context, a *app, args []string) error {
	root, err := newRootCmd(a)
	if err != nil {
		return err
	}
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err = root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:           "exosky",
		Short:         "Night sky from other worlds",
		Long:          "Browse exoplanets, view their star field, and author constellations.\nWithout a sub-command exosky starts the terminal UI.",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup(cmd == rootCmd)
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.runTUI(cmd.Context())
	}

	if err := setupFlags(rootCmd, a); err != nil {
		return nil, err
	}
	rootCmd.Flags().StringVar(&a.planet, "planet", "", "Exoplanet to open once the list is loaded")

	rootCmd.AddCommand(
		newPlanetsCmd(a),
		newStarsCmd(a),
		newConstellationsCmd(a),
		newSaveCmd(a),
		newExportCmd(a),
		newGridCmd(a),
	)
	return rootCmd, nil
}

// setupFlags defines the global flags and binds them to config keys.
func setupFlags(rootCmd *cobra.Command, a *app) error {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default ./exosky.yaml or $HOME/.config/exosky/exosky.yaml)")
	pf.String("api-url", catalog.DefaultBaseURL, "Backend base URL")
	pf.Float64("limiting-magnitude", catalog.DefaultLimitingMagnitude, "Faintest G magnitude to fetch")
	pf.Int("exoplanet-limit", catalog.DefaultExoplanetLimit, "Number of exoplanets to list")
	pf.Duration("timeout", catalog.DefaultTimeout, "Timeout for each backend request")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-file", "exosky.log", "Log file used while the terminal UI runs")
	pf.String("download-dir", ".", "Directory for exported star maps")

	return bindFlags(a.v, pf)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// setup loads configuration and creates the logger and backend client. The
// terminal UI owns the screen, so it logs to a file; sub-commands log to
// stderr.
func (a *app) setup(tui bool) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := logging.ParseLevel(cfg.LogLevel)
	if tui {
		logger, closeLog, err := logging.NewFile(level, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logger, a.closeLog = logger, closeLog
	} else {
		a.logger = logging.New(level)
		a.logger.SetOutput(a.stderr)
	}

	opts := cfg.ClientOptions()
	if a.httpClient != nil {
		opts = append(opts, catalog.WithHTTPClient(a.httpClient))
	}
	a.client = catalog.NewClient(opts...)
	a.logger.With("main").Debug("backend %s, timeout %s", a.client.BaseURL(), cfg.Timeout)
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	err := a.closeLog()
	a.closeLog = nil
	return err
}

func (a *app) runTUI(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the terminal UI needs a TTY; use a sub-command (see exosky --help) for plain output")
	}

	scene := state.NewScene(state.DefaultConfig(), a.logger)
	model := ui.New(scene, a.client, ui.Options{
		LimitingMagnitude: a.cfg.LimitingMagnitude,
		ExoplanetLimit:    a.cfg.ExoplanetLimit,
		DownloadDir:       a.cfg.DownloadDir,
		Timeout:           a.cfg.Timeout,
		InitialPlanet:     a.planet,
	}, a.logger)

	a.logger.Info("exosky %s starting against %s", version.Version, a.client.BaseURL())

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/scout/internal/backend"
	"github.com/harrison/scout/internal/config"
	"github.com/harrison/scout/internal/fileutil"
	"github.com/harrison/scout/internal/handler"
	"github.com/harrison/scout/internal/history"
	"github.com/harrison/scout/internal/locate"
	"github.com/harrison/scout/internal/logger"
	"github.com/harrison/scout/internal/metrics"
	"github.com/harrison/scout/internal/navigator"
	"github.com/harrison/scout/internal/provider"
	"github.com/harrison/scout/internal/query"
	"github.com/harrison/scout/internal/tiers"
	"github.com/harrison/scout/internal/volume"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// environment supplies the host-facing collaborators of every command.
type environment struct {
	fs       afero.Fs
	platform tiers.Platform
	home     string
	volumes  navigator.VolumeSource
	drives   handler.DriveReporter
	// provider replaces the configured indexer client when set
	provider provider.Provider
	stdin    io.Reader
}

func hostEnvironment() environment {
	platform := tiers.Host()
	home, _ := os.UserHomeDir()
	lister := volume.NewLister(platform)
	return environment{
		fs:       afero.NewOsFs(),
		platform: platform,
		home:     home,
		volumes:  lister,
		drives:   lister,
		stdin:    os.Stdin,
	}
}

// app is the fully wired search stack for one command invocation.
type app struct {
	cfg      *config.Config
	env      environment
	log      logger.Logger
	fileLog  *logger.FileLogger
	metrics  *metrics.Recorder
	nav      *navigator.Navigator
	provider provider.Provider
	selector *backend.Selector
	engine   *backend.Engine
	adapter  *query.Adapter
	handler  *handler.Handler
	journal  *history.Store
}

// loadConfig reads --config, or config.yaml under the scout home.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return cfg, nil
	}

	home, err := config.GetScoutHome()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfigFromDir(home)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// flagOverrides collects the persistent flags the user actually set.
func flagOverrides(cmd *cobra.Command) config.Flags {
	var f config.Flags
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		f.LogLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		f.LogDir = &v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		f.Timeout = &v
	}
	if flags.Changed("parallel") {
		v, _ := flags.GetBool("parallel")
		f.ParallelRoots = &v
	}
	if flags.Changed("io-rate") {
		v, _ := flags.GetFloat64("io-rate")
		f.IORateLimit = &v
	}
	if flags.Changed("no-provider") {
		v, _ := flags.GetBool("no-provider")
		enabled := !v
		f.ProviderEnabled = &enabled
	}
	if flags.Changed("no-history") {
		v, _ := flags.GetBool("no-history")
		enabled := !v
		f.HistoryEnabled = &enabled
	}
	if flags.Changed("metrics-file") {
		v, _ := flags.GetString("metrics-file")
		f.MetricsFile = &v
	}
	return f
}

// open loads configuration and wires the search stack.
// The caller must Close the returned app.
func (e environment) open(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(flagOverrides(cmd))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, env: e, metrics: metrics.NewRecorder()}

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	a.log = console
	if cfg.LogDir != "" {
		fl, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		a.fileLog = fl
		a.log = logger.Multi{console, fl}
	}

	walker := fileutil.NewWalker(e.fs).WithRateLimit(cfg.IORateLimit)
	a.nav = navigator.New(walker, navigator.Options{
		Platform:       e.platform,
		Home:           e.home,
		Volumes:        e.volumes,
		DepthBudgets:   cfg.DepthBudgets,
		SkipSystemTier: !cfg.IncludeSystemTier,
		ParallelRoots:  cfg.ParallelRoots,
		MaxParallel:    cfg.MaxParallel,
	}).WithLogger(a.log).WithMetrics(a.metrics)

	if cfg.Provider.Enabled {
		p, err := e.newProvider(cfg, a.log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.provider = p
	}

	a.selector = backend.NewSelector(nil, a.provider, a.nav)
	a.selector.WithLogger(a.log).WithMetrics(a.metrics)
	a.engine = backend.NewEngine(a.selector).WithLogger(a.log).WithMetrics(a.metrics)

	if cfg.History.Enabled {
		dbPath, err := config.GetHistoryDBPath(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		store, err := history.NewStore(dbPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.journal = store
		a.engine.WithJournal(store)
	}

	a.adapter = query.NewAdapter(query.Options{
		DefaultLimit:  cfg.DefaultLimit,
		MaxLimit:      cfg.MaxLimit,
		ScopeDepth:    cfg.ScopeDepth,
		IncludeSystem: cfg.IncludeSystemTier,
		Home:          e.home,
	})

	a.handler = handler.New(handler.Deps{
		Engine:          a.engine,
		Adapter:         a.adapter,
		Locator:         locate.New(e.fs),
		Tiers:           a.nav,
		Drives:          e.drives,
		Logger:          a.log,
		Timeout:         cfg.RequestTimeout,
		ExtendedTimeout: cfg.ExtendedTimeout,
	})

	return a, nil
}

// newProvider builds the breaker-wrapped indexer client.
func (e environment) newProvider(cfg *config.Config, log logger.Logger) (provider.Provider, error) {
	p := e.provider
	if p == nil {
		dialect := provider.DefaultDialect(e.platform)
		if cfg.Provider.Dialect != "" {
			d, err := provider.ParseDialect(cfg.Provider.Dialect)
			if err != nil {
				return nil, fmt.Errorf("invalid provider configuration: %w", err)
			}
			dialect = d
		}
		p = provider.NewCommand(provider.CommandConfig{
			Dialect:      dialect,
			Binary:       cfg.Provider.Binary,
			ProbeTimeout: cfg.Provider.ProbeTimeout,
			CallTimeout:  cfg.Provider.CallTimeout,
			Fs:           e.fs,
			FoldCase:     e.platform.CaseInsensitive(),
		})
	}
	return provider.NewBreaker(p, provider.BreakerSettings{
		MaxFailures: cfg.Provider.Breaker.MaxFailures,
		Cooldown:    cfg.Provider.Breaker.Cooldown,
	}, log), nil
}

// requireJournal returns the history store or an error when it is disabled.
func (a *app) requireJournal() (*history.Store, error) {
	if a.journal == nil {
		return nil, errors.New("search history is disabled (history.enabled: false or --no-history)")
	}
	return a.journal, nil
}

// Close flushes metrics and releases the journal and log files.
func (a *app) Close() error {
	var errs []error
	if a.cfg != nil && a.cfg.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.MetricsFile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("create metrics directory: %w", err))
		} else if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.fileLog != nil {
		errs = append(errs, a.fileLog.Close())
	}
	return errors.Join(errs...)
}

// withApp opens the stack, runs fn and closes it again.
func (e environment) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := e.open(cmd)
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), a)
	closeErr := a.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

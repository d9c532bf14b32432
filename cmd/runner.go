package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/metrics"
	"github.com/desertthunder/tophits/internal/services"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/desertthunder/tophits/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	engine     tasks.Engine
	metrics    *metrics.Manager
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from ConfigPath (or the --config flag) the first time a command needs it;
// a nil Catalog or Engine is then built from that config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Engine     tasks.Engine
	Metrics    *metrics.Manager
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		engine:     opts.Engine,
		metrics:    opts.Metrics,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, randomCommand, searchCommand, topCommand, tuiCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// prepare loads the configuration and builds the catalog and engine that were not injected.
//
// The default config path is optional: when it does not exist the embedded defaults plus the environment are used.
// An explicitly passed --config must exist.
func (r *Runner) prepare(cmd *cli.Command) error {
	if r.config == nil {
		path, explicit := r.configPath, r.configPath != ""
		if cmd != nil && (cmd.IsSet("config") || !explicit) {
			path, explicit = cmd.String("config"), cmd.IsSet("config")
		}
		if !explicit {
			if _, err := os.Stat(path); err != nil {
				path = ""
			}
		}

		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		r.config = config
		r.configPath = path
	}

	if r.config.Log.Level != "" {
		if err := shared.SetLogLevelString(r.logger, r.config.Log.Level); err != nil {
			return err
		}
	}

	if r.catalog == nil {
		r.catalog = services.NewSpotifyCatalog(services.CatalogOpts{
			Credentials: r.config.Credentials.Spotify,
			Catalog:     r.config.Catalog,
			HTTPClient:  r.httpClient,
			Metrics:     r.metrics,
			Logger:      shared.WithLogger(r.logger, "component", "catalog"),
		})
	}

	if r.engine == nil {
		r.engine = tasks.NewHitsEngine(r.catalog,
			tasks.WithGenres(r.config.Catalog.Genres),
			tasks.WithStartYear(r.config.Catalog.StartYear),
			tasks.WithMetrics(r.metrics),
			tasks.WithLogger(shared.WithLogger(r.logger, "component", "engine")),
		)
	}

	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playlistr/internal/shared"
	"github.com/desertthunder/playlistr/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	fixed       bool
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	errOutput   io.Writer
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is; otherwise the config is resolved from flags before each command runs.
type RunnerOpts struct {
	Config      *shared.Config
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	ErrOutput   io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	fixed := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		fixed:       fixed,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		errOutput:   opts.ErrOutput,
		openBrowser: opts.OpenBrowser,
	}
}

// App builds the root playlistr command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "playlistr",
		Usage:   "Share your Spotify playlists with other listeners",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before reading the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
		Writer:   r.output,
	}
}

// Before resolves the configuration and log level shared by every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !r.fixed {
		config, err := shared.Resolve(cmd.String("config"), cmd.String("env-file"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	if level != "" {
		if err := shared.SetLogLevel(r.logger, level); err != nil {
			return ctx, err
		}
	}

	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, userCommand, playlistsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase(ctx context.Context) (*sql.DB, error) {
	path := r.config.Database.Path

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(path, ":memory:") && r.config.Database.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	applied, err := shared.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied, "path", path)
	}

	return db, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeOK(format string, args ...any) error {
	return r.writePlain("%s\n", ui.Styles.OK("✓ "+fmt.Sprintf(format, args...)))
}

func (r *Runner) writeHelp(format string, args ...any) error {
	return r.writePlain("%s\n", ui.Styles.Help(fmt.Sprintf(format, args...)))
}

func (r *Runner) writeTitle(title string) error {
	return r.writePlain("%s\n", ui.Styles.Title(title))
}

func (r *Runner) writeWarn(format string, args ...any) error {
	return r.writePlain("%s\n", ui.Styles.Warn("! "+fmt.Sprintf(format, args...)))
}

// writeErr reports a failed command on the error output.
func (r *Runner) writeErr(err error) {
	fmt.Fprintln(r.errOutput, ui.Styles.Err("✗ "+err.Error()))
}

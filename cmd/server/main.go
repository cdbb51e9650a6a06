package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/UkralStul/post-comments/internal/config"
	"github.com/UkralStul/post-comments/internal/logging"
	"github.com/UkralStul/post-comments/internal/remote"
	"github.com/UkralStul/post-comments/internal/remote/httpclient"
	"github.com/UkralStul/post-comments/internal/remote/inmemory"
)

// Populated at build-time via -ldflags.
var version = "dev"

type flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	Remote     string
}

// app is filled in by the root Before hook and shared by all commands.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	var (
		f         = &flags{}
		a         = &app{}
		logCloser func()
	)

	root := &cli.Command{
		Name:    "post-comments",
		Usage:   "Serve the nested comment pages of blog posts",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("POSTCOMMENTS_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stdout)",
				Sources:     cli.EnvVars("POSTCOMMENTS_LOG_FILE"),
				Destination: &f.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("POSTCOMMENTS_CONFIG"),
				Value:       "config.yaml",
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "remote",
				Usage:       "blog service to use (http or in-memory), overrides the config file",
				Sources:     cli.EnvVars("POSTCOMMENTS_REMOTE"),
				Destination: &f.Remote,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logging.New(f.LogLevel, f.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logCloser = closer
			a.logger = logger

			cfg, err := config.Load(f.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if f.Remote != "" {
				cfg.Remote.Kind = f.Remote
				if err := cfg.Validate(); err != nil {
					return ctx, fmt.Errorf("invalid config: %w", err)
				}
			}
			a.cfg = cfg

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		Commands: []*cli.Command{
			newServeCmd(a),
			newShowCmd(a),
		},
	}

	// serve is the default when no subcommand is given
	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'post-comments --help' for usage", c.Args().First())
		}
		return a.serve(ctx)
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// newService builds the blog service client the config asks for. The
// in-memory service is seeded with sample posts.
func (a *app) newService(ctx context.Context) (remote.Service, error) {
	logger := logging.Component(a.logger, "remote")

	switch a.cfg.Remote.Kind {
	case config.RemoteHTTP:
		return httpclient.New(httpclient.Config{
			BaseURL:      a.cfg.Remote.BaseURL,
			Timeout:      a.cfg.Remote.Timeout,
			ViewerCookie: a.cfg.Remote.ViewerCookie,
		}, logger)
	case config.RemoteInMemory:
		store := inmemory.New()
		postID, err := store.Seed(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed in-memory blog: %w", err)
		}
		logger.Info().Str("post", postID).Msg("in-memory blog seeded")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown remote kind %q", a.cfg.Remote.Kind)
	}
}

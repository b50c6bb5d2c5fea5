package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgsync/internal/config"
	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/docstore"
	"github.com/roach88/cfgsync/internal/docstore/gist"
	"github.com/roach88/cfgsync/internal/docstore/s3store"
)

// StoreFactory builds the document store for a merged configuration.
type StoreFactory func(ctx context.Context, cfg *config.Config) (docstore.Store, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigFile string

	// StoreFactory defaults to DefaultStoreFactory.
	StoreFactory StoreFactory

	// Now supplies generation timestamps. Defaults to time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the cfgsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cfgsync",
		Short: "cfgsync - compile and sync include-linked config trees",
		Long: `Compile a tree of config files linked by exec "name" lines into one
document, or synchronize the tree with a remote collection (a GitHub gist
or an S3 bucket prefix).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: cfgsync.yaml in . or the user config dir)")
	cmd.PersistentFlags().String("store", config.StoreGist, "document store (gist|s3)")
	cmd.PersistentFlags().String("github-api", gist.DefaultAPI, "GitHub REST API base URL")
	cmd.PersistentFlags().String("journal", "", "sync journal database (default: user config dir)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	cmd.PersistentFlags().String("log-file", "", "write logs to a rotating file instead of stderr")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// DefaultStoreFactory builds the store selected by cfg.Store.
func DefaultStoreFactory(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store {
	case config.StoreS3:
		st, err := s3store.New(s3store.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return gist.New(ctx, gist.Config{API: cfg.GitHubAPI, Token: cfg.AccessToken}), nil
	}
}

func (o *RootOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *RootOptions) newStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	if o.StoreFactory != nil {
		return o.StoreFactory(ctx, cfg)
	}
	return DefaultStoreFactory(ctx, cfg)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// session is the per-invocation state shared by commands: merged config,
// a context carrying the logger, and the output formatter.
type session struct {
	ctx       context.Context
	cfg       *config.Config
	formatter *OutputFormatter
	logCloser io.Closer
}

func (s *session) Close() error {
	return s.logCloser.Close()
}

// setup loads configuration and the logger for cmd. Errors are already
// reported through the formatter when it returns.
func (o *RootOptions) setup(cmd *cobra.Command) (*session, error) {
	formatter := o.formatter(cmd)

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: o.ConfigFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, outputError(formatter, err)
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	logger, closer := ctxlog.New(ctxlog.Options{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{
		ctx:       ctxlog.WithLogger(ctx, logger),
		cfg:       cfg,
		formatter: formatter,
		logCloser: closer,
	}, nil
}

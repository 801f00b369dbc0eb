package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aq/jobtree/internal/config"
	"github.com/aq/jobtree/internal/printer"
	"github.com/aq/jobtree/pkg/jobtree"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath string
	redisURL   string
	namespace  string
	logLevel   string
	timeout    time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jobtree",
	Short: "jobtree - Redis-backed job dependency trees",
	Long: `jobtree inspects and drives job dependency trees whose state lives in Redis.

Each tree is declared in jobtree.yml. A launched tree stores one record per
node; finishing the leaves bubbles readiness up to the root, and cleanup
purges a node, its subtree and, when it was the last child, its ancestors.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Errors are printed by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "jobtree.yml", "Path to the tree declarations")
	flags.StringVar(&redisURL, "redis-url", "", "Redis URL (overrides config and environment)")
	flags.StringVar(&namespace, "namespace", "", "Key namespace (overrides config and environment)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for Redis operations")
}

// session bundles what every command needs to talk to the store.
type session struct {
	cfg    *config.Config
	store  *jobtree.RedisStore
	client *jobtree.Client
}

func (s *session) Close() {
	s.store.Close()
}

// openSession loads the configuration, applies flag overrides and connects.
func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"failed to load configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Pass the declarations file with --config <path>"},
		)
	}

	if redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if namespace != "" {
		cfg.Redis.Namespace = namespace
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, printer.Error(
			"invalid log level",
			fmt.Sprintf("Unknown level: %s", cfg.LogLevel),
			[]string{"Valid levels: debug, info, warn, error"},
		)
	}
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	store, err := jobtree.NewRedisStoreFromURL(cfg.Redis.URL)
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			err.Error(),
			[]string{"Use the form redis://host:port/db"},
		)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, printer.ErrorWithContext(
			"Redis is not reachable",
			err.Error(),
			map[string]string{"URL": cfg.Redis.URL},
			[]string{"Check the server is running", "Set --redis-url or " + config.EnvRedisURL},
		)
	}

	client, err := jobtree.NewClient(store, catalog,
		jobtree.WithNamespace(cfg.Redis.Namespace),
		jobtree.WithLogger(logger.WithField("cli_command", cmd.Name())),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &session{cfg: cfg, store: store, client: client}, nil
}

// commandContext returns a context bounded by --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

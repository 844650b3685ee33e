package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowdiagram/pkg/buildinfo"
	"github.com/matzehuels/flowdiagram/pkg/cache"
	"github.com/matzehuels/flowdiagram/pkg/diagram"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/pipeline"
	"github.com/matzehuels/flowdiagram/pkg/session"
	"github.com/matzehuels/flowdiagram/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flowdiagram"

	// redisCachePrefix namespaces artifact entries in a shared Redis.
	redisCachePrefix = "flowdiagram:cache:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flowdiagram edits and checks conversational flow graphs",
		Long:         `Flowdiagram keeps the diagram of a conversational flow in sync with its JSON document: it sanitizes links, reports unresolved transitions, fits the graph into a canvas and renders it.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ~/.config/flowdiagram/config.toml)")

	// Register all subcommands
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.fitCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.flowsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())

	return root
}

// loadConfig reads the config file and installs the logging hooks.
func (c *CLI) loadConfig() error {
	path := c.configFile
	if path == "" {
		p, err := configPath()
		if err == nil {
			path = p
		}
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	c.Config = cfg
	installHooks(c.Logger)
	c.Logger.Debug("loaded config", "path", path, "store", cfg.Store.Backend)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if addr := c.Config.Cache.RedisAddr; addr != "" {
		return cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: addr}), redisCachePrefix), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openStore connects the configured flow store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, c.Config.Store)
}

// sessionOptions returns session options from the canvas config.
func (c *CLI) sessionOptions() session.Options {
	return session.Options{
		Logger:   c.Logger,
		Size:     c.Config.Canvas.Size,
		Padding:  c.Config.Canvas.Padding,
		ReadOnly: c.Config.Canvas.ReadOnly,
	}
}

// openFile opens a session on a flow file. The file's directory acts as the
// store, so commits rewrite the file in place.
func (c *CLI) openFile(ctx context.Context, path string, readOnly bool) (*session.Session, error) {
	st, err := store.NewFileStore(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	opts := c.sessionOptions()
	opts.ReadOnly = opts.ReadOnly || readOnly
	return session.Open(ctx, st, filepath.Base(path), opts)
}

// loadModel reads a flow file into a fresh diagram without a store.
func (c *CLI) loadModel(path string) (*diagram.Manager, error) {
	doc, err := flow.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	var opts []diagram.Option
	if c.Config.Canvas.Padding > 0 {
		opts = append(opts, diagram.WithPadding(c.Config.Canvas.Padding))
	}
	m := diagram.NewManager(nil, c.Logger, opts...)
	m.SetDiagramContainer(nil, c.Config.Canvas.Size)
	m.SetReadOnly(true)
	m.SetCurrentFlow(doc)
	m.InitializeModel()
	return m, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flowdiagram/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// basePath derives the output path without extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(strings.TrimSuffix(input, filepath.Ext(input)), ".flow")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// requireFlowFile checks that path names a readable file.
func requireFlowFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

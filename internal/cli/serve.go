package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowdiagram/pkg/server"
	"github.com/matzehuels/flowdiagram/pkg/session"
	"github.com/matzehuels/flowdiagram/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve flows over HTTP",
		Long: `Serve the configured flow store over HTTP. Each flow gets one live diagram
shared by all requests; edits are committed to the store immediately.

See the [store] section of the config file for the backend (file, redis,
mongo) and [cache] for where rendered diagrams are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	pool := session.NewPool(st, c.sessionOptions())
	printInfo("Serving %s store on %s", StyleHighlight.Render(storeBackend(c.Config.Store.Backend, c.Config.Store.Dir)), StyleValue.Render(addr))
	return server.New(pool, runner, c.Logger).ListenAndServe(ctx, addr)
}

// storeBackend names the backend store.Open picks for the config.
func storeBackend(backend, dir string) string {
	if backend != "" {
		return backend
	}
	if dir != "" {
		return store.BackendFile
	}
	return store.BackendMemory
}

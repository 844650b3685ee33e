package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/session"
)

// flowsCommand creates the flows command for working with the configured
// store.
func (c *CLI) flowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Manage flows in the configured store",
	}

	cmd.AddCommand(c.flowsListCommand())
	cmd.AddCommand(c.flowsPushCommand())
	cmd.AddCommand(c.flowsPullCommand())
	cmd.AddCommand(c.flowsRemoveCommand())

	return cmd
}

func (c *CLI) flowsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			names, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No flows stored")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(stdout, name)
			}
			return nil
		},
	}
}

func (c *CLI) flowsPushCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push [flow.json...]",
		Short: "Upload flow files to the store",
		Long: `Upload flow files to the store. The diagram of each flow is built once so
that its links are sanitized before the document is stored. Existing flows are
only replaced with --force.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			pool := session.NewPool(st, c.sessionOptions())
			prog := newProgress(c.Logger)

			for _, path := range args {
				doc, err := flow.ReadFile(path)
				if err != nil {
					return err
				}
				if doc.Name == "" {
					doc.Name = filepath.Base(path)
				}

				var s *session.Session
				if force {
					s, err = pool.Put(ctx, doc)
				} else {
					s, err = session.Create(ctx, st, doc, c.sessionOptions())
				}
				if err != nil {
					return fmt.Errorf("push %s: %w", path, err)
				}
				printSuccess("Pushed %s", StyleValue.Render(s.Name()))
				if n := len(s.Problems()); n > 0 {
					printWarning("%d node(s) with unresolved transitions", n)
				}
			}
			prog.done("Pushed flows", "count", len(args), "backend", c.Config.Store.Backend)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace existing flows")

	return cmd
}

func (c *CLI) flowsPullCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull [name]",
		Short: "Download a flow from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "-" {
				return flow.Write(doc, stdout)
			}
			if output == "" {
				output = doc.Name
			}
			if err := flow.WriteFile(doc, output); err != nil {
				return err
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: the flow name)")

	return cmd
}

func (c *CLI) flowsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [name...]",
		Short: "Delete flows from the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			for _, name := range args {
				if err := st.Delete(cmd.Context(), name); err != nil {
					return err
				}
				printSuccess("Deleted %s", name)
			}
			return nil
		},
	}
}

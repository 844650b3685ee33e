package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync [flow.json...]",
		Short: "Rewrite stored links from the transitions",
		Long: `Rebuild the diagram of each flow, drop links that violate the port rules
and write the canonical link list back into the file. Waypoints of links that
still match a transition are kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := c.runSync(cmd.Context(), path, dryRun); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report without writing")

	return cmd
}

func (c *CLI) runSync(ctx context.Context, path string, dryRun bool) error {
	if err := requireFlowFile(path); err != nil {
		return err
	}
	s, err := c.openFile(ctx, path, false)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	m := s.Manager()
	if sameLinks(m.Serialize().Links, s.Document().Links) {
		printSuccess("%s is up to date", StyleValue.Render(s.Name()))
		return nil
	}
	if dryRun {
		printWarning("%s has out-of-date links", s.Name())
		return nil
	}

	// Forget the primed hash so the commit writes the links.
	m.ResetLinksHash()
	res, err := s.Commit(ctx)
	if err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	printSuccess("Synced %s", StyleValue.Render(s.Name()))
	printStats(m.Counts())
	if len(res.Changed) > 0 {
		printDetail("%d node(s) updated", len(res.Changed))
	}
	printFile(path)
	return nil
}

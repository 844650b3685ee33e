package cli

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [flow.json...]",
		Short: "Report unresolved transitions",
		Long: `Report nodes whose transitions have an empty target or name a node that
does not exist in the flow. END and subflow targets (*.flow.json) are never
reported. Stored links that no longer match the transitions are flagged as
out of date; run 'sync' to rewrite them.

The command fails when any flow has problems.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				ok, err := c.runCheck(path)
				if err != nil {
					return err
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d flows have problems", failed, len(args))
			}
			return nil
		},
	}
}

func (c *CLI) runCheck(path string) (bool, error) {
	if err := requireFlowFile(path); err != nil {
		return false, err
	}
	m, err := c.loadModel(path)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", path, err)
	}

	name := filepath.Base(path)
	problems := m.NodeProblems()
	stale := !sameLinks(m.Serialize().Links, m.CurrentFlow().Links)

	if len(problems) == 0 {
		printSuccess("%s", StyleValue.Render(name))
	} else {
		printError("%s", StyleValue.Render(name))
	}
	printStats(m.Counts())
	printProblems(problems)
	if stale {
		printWarning("stored links are out of date")
	}
	return len(problems) == 0, nil
}

// sameLinks compares link sets in order, ignoring nil versus empty points.
func sameLinks(a, b []flow.Link) bool {
	return slices.EqualFunc(a, b, func(x, y flow.Link) bool {
		return x.Source == y.Source &&
			x.SourcePort == y.SourcePort &&
			x.Target == y.Target &&
			slices.Equal(x.Points, y.Points)
	})
}

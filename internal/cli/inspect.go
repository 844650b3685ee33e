package cli

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		plain        bool
		problemsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [flow.json]",
		Short: "Browse the nodes of a flow",
		Long: `Browse the nodes of a flow with their positions, transition targets and
unresolved transitions. Runs interactively on a terminal; --plain prints the
table once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := requireFlowFile(path); err != nil {
				return err
			}
			m, err := c.loadModel(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			m.FitToView()

			model := NewNodeListModel(filepath.Base(path), m)
			model.ProblemsOnly = problemsOnly
			if plain {
				model.Height = m.Model().NodeCount()
				fmt.Fprint(stdout, model.View())
				return nil
			}
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the table without interaction")
	cmd.Flags().BoolVarP(&problemsOnly, "problems", "p", false, "only show nodes with problems")

	return cmd
}

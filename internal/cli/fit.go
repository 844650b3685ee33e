package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowdiagram/pkg/diagram"
)

// fitCommand creates the fit command.
func (c *CLI) fitCommand() *cobra.Command {
	var (
		width, height, padding float64
		asJSON                 bool
	)

	cmd := &cobra.Command{
		Use:   "fit [flow.json]",
		Short: "Compute the zoom and offset framing a flow",
		Long: `Compute the viewport that frames every node of a flow inside a canvas.
The zoom never exceeds 1; the canvas defaults to the [canvas] config section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("width") {
				c.Config.Canvas.Width = width
			}
			if cmd.Flags().Changed("height") {
				c.Config.Canvas.Height = height
			}
			if cmd.Flags().Changed("padding") {
				c.Config.Canvas.Padding = padding
			}
			return c.runFit(args[0], asJSON)
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "canvas width in pixels")
	cmd.Flags().Float64Var(&height, "height", 0, "canvas height in pixels")
	cmd.Flags().Float64Var(&padding, "padding", diagram.DefaultPadding, "margin around the graph")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the viewport as JSON")

	return cmd
}

func (c *CLI) runFit(path string, asJSON bool) error {
	if err := requireFlowFile(path); err != nil {
		return err
	}
	m, err := c.loadModel(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	vp := m.FitToView()

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(vp)
	}
	printViewport(vp)
	return nil
}

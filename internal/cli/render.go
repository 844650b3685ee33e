package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowdiagram/pkg/pipeline"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		highlight  string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [flow.json]",
		Short: "Render a flow to DOT, SVG, PDF, PNG or JSON",
		Long: `Render a flow diagram.

Nodes are laid out by Graphviz, or kept at their editor positions with
--pinned. The start node has a double border, skill calls a dashed one.
The json format writes the canonical serialized diagram.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts, output, highlight, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, pdf, png, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "re-render even when cached")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "show skill and action counts")
	cmd.Flags().BoolVar(&opts.Pinned, "pinned", false, "keep editor positions")
	cmd.Flags().BoolVar(&opts.Terminals, "terminals", false, "draw END and subflow targets")
	cmd.Flags().Float64Var(&opts.Scale, "scale", pipeline.DefaultScale, "PNG scale factor")
	cmd.Flags().StringVar(&highlight, "highlight", "", "fill the node with this name")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output, highlight string, noCache bool) error {
	if err := requireFlowFile(input); err != nil {
		return err
	}
	m, err := c.loadModel(input)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}
	if highlight != "" {
		m.SetHighlightedNodeName(highlight)
		m.SyncModel()
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	spin := startSpinner(ctx, os.Stderr, "Rendering "+m.CurrentFlow().Name)
	res, err := runner.Render(ctx, m, opts)
	if err != nil {
		spin.fail("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spin.stop()

	printSuccess("Rendered %s", StyleValue.Render(m.CurrentFlow().Name))
	printRenderStats(res.Stats.NodeCount, res.Stats.LinkCount, res.CacheHit)
	return writeArtifacts(res.Artifacts, opts.Formats, input, output)
}

// writeArtifacts writes one file per format. A single format goes to output
// as given; several formats share output as base path.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) error {
	base := basePath(output, input)
	for _, format := range formats {
		path := base + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if filepath.Clean(path) == filepath.Clean(input) {
			return fmt.Errorf("refusing to overwrite input %s; pass --output", input)
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/flowdiagram/pkg/diagram"
	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// NodeListModel - Interactive flow inspection
// =============================================================================

// nodeRow is one node of the inspected flow.
type nodeRow struct {
	node     *diagram.Node
	problems int
}

// NodeListModel is the bubbletea model for browsing the nodes of a flow.
type NodeListModel struct {
	Flow     string
	Viewport diagram.Viewport
	Cursor   int
	Height   int
	Offset   int

	// ProblemsOnly hides nodes without unresolved transitions.
	ProblemsOnly bool
	// Detail shows the transitions and actions of the node under the cursor.
	Detail bool

	rows []nodeRow
}

// NewNodeListModel lists the nodes of m in insertion order.
func NewNodeListModel(name string, m *diagram.Manager) NodeListModel {
	counts := make(map[string]int)
	for _, p := range m.NodeProblems() {
		counts[p.NodeName] = p.MissingPorts
	}
	nodes := m.Model().Nodes()
	rows := make([]nodeRow, len(nodes))
	for i, n := range nodes {
		rows[i] = nodeRow{node: n, problems: counts[n.Name]}
	}
	return NodeListModel{
		Flow:     name,
		Viewport: m.Viewport(),
		Height:   15,
		rows:     rows,
	}
}

// visible returns the rows passing the filter.
func (m NodeListModel) visible() []nodeRow {
	if !m.ProblemsOnly {
		return m.rows
	}
	var out []nodeRow
	for _, r := range m.rows {
		if r.problems > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		rows := m.visible()
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "p":
			m.ProblemsOnly = !m.ProblemsOnly
			m.Cursor, m.Offset = 0, 0
		case "enter", " ":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Flow))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  p problems only  q quit"))
	b.WriteString("\n\n")

	rows := m.visible()
	if len(rows) == 0 {
		b.WriteString(StyleSuccess.Render("No nodes to show"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(rows))
	var cells [][]string
	for i := m.Offset; i < end; i++ {
		r := rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		name := r.node.Name
		if r.node.IsStartNode {
			name += " ★"
		}
		problems := "—"
		if r.problems > 0 {
			problems = fmt.Sprintf("%d", r.problems)
		}
		cells = append(cells, []string{
			cursor,
			name,
			r.node.Kind.String(),
			fmt.Sprintf("%.0f,%.0f", r.node.X, r.node.Y),
			targets(r.node.Next()),
			problems,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Type", "Position", "Next", "Problems").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(rows) {
				return lipgloss.NewStyle()
			}
			if rows[idx].problems > 0 && col == 5 {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			if idx == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  zoom %.2f  offset %.0f,%.0f",
		m.Cursor+1, len(rows), m.Viewport.Zoom, m.Viewport.OffsetX, m.Viewport.OffsetY)))
	b.WriteString("\n")

	if m.Detail && m.Cursor < len(rows) {
		b.WriteString("\n")
		b.WriteString(nodeDetail(rows[m.Cursor].node))
	}
	return b.String()
}

// targets joins the transition targets of a node.
func targets(next []flow.Transition) string {
	if len(next) == 0 {
		return "—"
	}
	parts := make([]string, len(next))
	for i, t := range next {
		parts[i] = t.Node
		if t.Node == "" {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// nodeDetail renders the transitions and actions of n.
func nodeDetail(n *diagram.Node) string {
	var b strings.Builder
	keyStyle := lipgloss.NewStyle().Foreground(colorGray)

	if n.Skill != "" {
		b.WriteString(keyStyle.Render("skill     ") + StyleValue.Render(n.Skill) + "\n")
	}
	for i, t := range n.Next() {
		cond := t.Condition
		if cond == "" {
			cond = "true"
		}
		b.WriteString(keyStyle.Render(fmt.Sprintf("out%-6d ", i)) +
			StyleDim.Render(cond) + " " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(t.Node) + "\n")
	}
	for _, a := range n.OnEnter {
		b.WriteString(keyStyle.Render("onEnter   ") + a + "\n")
	}
	for _, a := range n.OnReceive {
		b.WriteString(keyStyle.Render("onReceive ") + a + "\n")
	}
	return b.String()
}

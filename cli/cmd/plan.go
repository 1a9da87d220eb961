package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dtcenter/METplus-sub003/lang"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	indexStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Align(lipgloss.Right)
	buildStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	testStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	depStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Plan lists the run-list in execution order with each task's steps and
// direct dependencies.
type Plan struct {
	Suite Suite `embed:""`
}

// Run executes the plan command.
func (p *Plan) Run(ctx context.Context) error {
	c, err := p.Suite.compile(ctx)
	if err != nil {
		return err
	}

	rows, err := planRows(c)
	if err != nil {
		return err
	}

	platform := "none"
	if pl := c.Platform(); pl != nil {
		platform = pl.Name
	}

	out := outputFrom(ctx)

	fmt.Fprintln(out, titleStyle.Render(
		fmt.Sprintf("%s: %s mode, platform %s", p.Suite.Source, c.Mode(), platform),
	))

	if len(rows) == 0 {
		fmt.Fprintln(out, depStyle.Render("nothing to run"))

		return nil
	}

	header := []string{"#", "KIND", "NAME", "STEPS", "DEPENDS ON"}
	widths := make([]int, len(header))

	for _, r := range append([][]string{header}, rows...) {
		for i, cell := range r {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style func(col int, cell string) lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = style(i, cell).Width(widths[i]).Render(cell)
		}

		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(out, line(header, func(int, string) lipgloss.Style { return headerStyle }))

	for _, r := range rows {
		fmt.Fprintln(out, line(r, func(col int, cell string) lipgloss.Style {
			switch col {
			case 0:
				return indexStyle
			case 1:
				if cell == lang.KindBuild.String() {
					return buildStyle
				}

				return testStyle
			case 4:
				return depStyle
			default:
				return lipgloss.NewStyle()
			}
		}))
	}

	return nil
}

// planRows describes each run-list entry as index, kind, name, steps and
// dependencies.
func planRows(c *lang.Compiler) ([][]string, error) {
	var rows [][]string

	for i, e := range c.Runs() {
		steps, err := c.Steps(e.Scope)
		if err != nil {
			return nil, err
		}

		names := make([]string, len(steps))
		for j, s := range steps {
			names[j] = s.Name
		}

		var deps []string
		for _, d := range c.Deps(e.Scope) {
			deps = append(deps, d.Name)
		}

		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Scope.Kind.String(),
			e.Scope.Name,
			strings.Join(names, ","),
			strings.Join(deps, ","),
		})
	}

	return rows, nil
}

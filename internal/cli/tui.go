package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/drQedwards/ppm/pkg/lock"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// LockListModel - Interactive lockfile browser
// =============================================================================

// LockListModel is the bubbletea model for browsing a lockfile's packages.
type LockListModel struct {
	Packages []lock.Package
	Cursor   int
	Height   int
	Offset   int
}

// NewLockListModel creates a new lockfile browser model.
func NewLockListModel(packages []lock.Package) LockListModel {
	return LockListModel{
		Packages: packages,
		Cursor:   0,
		Height:   15,
		Offset:   0,
	}
}

func (m LockListModel) Init() tea.Cmd {
	return nil
}

func (m LockListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m LockListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Locked Packages"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Packages) {
		end = len(m.Packages)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Packages[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		kind := "sdist"
		filename := "—"
		if len(p.Artifacts) > 0 {
			if p.Artifacts[0].IsWheel {
				kind = "wheel"
			}
			filename = p.Artifacts[0].Filename
		}

		deps := "—"
		if len(p.Requires) > 0 {
			deps = fmt.Sprintf("%d", len(p.Requires))
		}

		rows = append(rows, []string{cursor, p.Name, p.Version, kind, deps, filename})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Version", "Kind", "Deps", "Artifact").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Packages) {
				return lipgloss.NewStyle()
			}
			isCurrent := actualIdx == m.Cursor

			base := lipgloss.NewStyle()
			if col == 4 || col == 5 {
				base = base.Foreground(colorDim)
			}

			if isCurrent {
				if col != 4 && col != 5 {
					return base.Foreground(colorCyan).Bold(true)
				}
				return base.Bold(true)
			}
			if col != 4 && col != 5 {
				return base.Foreground(colorWhite)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Packages))))

	return b.String()
}

package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

var (
	categoryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89b4fa"))

	fieldStyle = lipgloss.NewStyle()

	enumStyle = lipgloss.NewStyle().
			Faint(true).
			PaddingRight(1)
)

// renderTree draws the children of root as a rounded tree, one line per node,
// each line cut to width columns. A width below 1 disables trimming.
func renderTree(root *viewNode, width int) []string {
	if len(root.Children) == 0 {
		return nil
	}
	t := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)
	for _, c := range root.Children {
		t.Child(lipglossNode(c))
	}

	lines := strings.Split(t.String(), "\n")
	if width > 0 {
		for i, line := range lines {
			lines[i] = ansi.Truncate(line, width, "…")
		}
	}
	return lines
}

func lipglossNode(n *viewNode) any {
	if n.Field {
		return fieldStyle.Render(n.label())
	}
	t := tree.Root(categoryStyle.Render(n.label()))
	for _, c := range n.Children {
		t.Child(lipglossNode(c))
	}
	return t
}

// terminalWidth returns the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

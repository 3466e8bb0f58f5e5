package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/lumen-reader/lumen/internal/tui/theme"
)

func Toolbar(inDetail bool) string {
	if inDetail {
		return "j/k scroll | s summarize | T translate | o open | y copy | S star | esc back | q quit"
	}
	return "j/k move | tab sidebar | enter open | / search | u unread | r refresh | S star | q quit"
}

func Footer(scope string, shown, total int, searchQuery string, th tuitheme.Theme) string {
	parts := []string{
		th.MetaLabel.Render("scope") + " " + th.MetaValue.Render(scope),
		th.MetaValue.Render(fmt.Sprintf("%d shown", shown)),
	}
	if total > 0 {
		parts = append(parts, th.MetaValue.Render(fmt.Sprintf("%d total", total)))
	}
	if searchQuery != "" {
		parts = append(parts, th.MetaLabel.Render("search")+" "+th.MetaValue.Render(fmt.Sprintf("%q", searchQuery)))
	}
	return strings.Join(parts, " • ")
}

func Message(loading bool, warning, status string, th tuitheme.Theme) string {
	state := "idle"
	stateLabel := th.StateIdle.Render("state")
	if loading {
		state = "loading"
		stateLabel = th.StateLoad.Render("state")
	}
	if warning != "" {
		state = "warning"
		stateLabel = th.StateWarn.Render("state")
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if warning != "" {
		main = warning
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}

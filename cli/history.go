package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/slipwaylabs/slipway/project"
	"github.com/slipwaylabs/slipway/store"
)

var statusStyles = map[string]lipgloss.Style{
	store.StatusSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	store.StatusPartial:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08")),
	store.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	store.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
}

// runHistory prints the most recent runs, newest first.
func runHistory(w io.Writer, limit int) error {
	path, err := store.DefaultPath()
	if err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Recent(limit)
	if err != nil {
		return err
	}
	return renderRuns(w, runs)
}

func renderRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs yet. Try: slipway new \"a pomodoro timer app\"")
		return err
	}

	for _, run := range runs {
		status := fmt.Sprintf("%-9s", run.Status)
		if style, ok := statusStyles[run.Status]; ok {
			status = style.Render(status)
		}
		name := run.ProjectName
		if name == "" {
			name = "(unnamed)"
		}

		fmt.Fprintf(w, "%s  %s  %s\n", run.CreatedAt.Format("2006-01-02 15:04"), status, name)
		fmt.Fprintf(w, "    %s\n", project.Truncate(run.Brief, 80))
		if run.RepoURL != "" {
			fmt.Fprintf(w, "    repo: %s\n", run.RepoURL)
		}
		if run.DeployURL != "" {
			fmt.Fprintf(w, "    live: %s\n", run.DeployURL)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", project.Truncate(run.Error, 80))
		}
	}
	return nil
}

package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/guidebuilder/internal/guide"
)

// TasksCmd lists the task graph.
type TasksCmd struct{}

func (t *TasksCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, true)
	if err != nil {
		return err
	}
	graph, err := guide.New(cfg).Graph()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TASK\tDEPENDS ON\tDESCRIPTION")
	for _, tk := range graph.Tasks() {
		deps := strings.Join(tk.Dependencies(), ", ")
		if deps == "" {
			deps = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", tk.Name(), deps, tk.Description())
	}
	return w.Flush()
}

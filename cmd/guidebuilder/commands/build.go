package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/guide"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Tasks  []string `arg:"" optional:"" help:"Tasks to run (default: test, asciidoctor)"`
	DryRun bool     `name:"dry-run" help:"Resolve and preprocess, but only print the external commands"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	return withMetrics(cfg, func(rec metrics.Recorder) error {
		builder := guide.New(cfg).WithRecorder(rec)
		if b.DryRun {
			builder = builder.WithRunner(guide.NoopRunner{})
		}
		outcomes, err := builder.Run(ctx, b.Tasks...)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			_, _ = fmt.Fprintf(g.Out, "%-26s %s\n", o.Task, o.Duration.Round(time.Millisecond))
		}
		_, _ = fmt.Fprintf(g.Out, "BUILD SUCCESSFUL (%s %s)\n", cfg.Plugin.Token, builder.Version())
		return nil
	})
}

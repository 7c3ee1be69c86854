package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/guide"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
	"git.home.luguber.info/inful/guidebuilder/internal/watch"
)

// WatchCmd re-runs preprocessing when the sample sources change.
type WatchCmd struct {
	Debounce time.Duration `name:"debounce" default:"300ms" help:"Quiet period before a re-run"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	builder := guide.New(cfg)
	run := func(ctx context.Context) error {
		if _, err := builder.Run(ctx, guide.TaskPreprocess); err != nil {
			return err
		}
		res := builder.SamplesResult()
		slog.Info("Samples refreshed", logfields.Version(builder.Version()), logfields.Files(res.Files), logfields.Path(res.Output))
		return nil
	}

	_, _ = fmt.Fprintf(g.Out, "Watching %s (Ctrl+C to stop)\n", cfg.Samples.Source)
	return watch.New(cfg.Samples.Source, run).WithDebounce(w.Debounce).Run(ctx)
}

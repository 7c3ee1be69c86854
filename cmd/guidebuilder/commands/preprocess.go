package commands

import (
	"fmt"

	"git.home.luguber.info/inful/guidebuilder/internal/guide"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
)

// PreprocessCmd runs the preProcessSamples task and its dependency.
type PreprocessCmd struct{}

func (p *PreprocessCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	return withMetrics(cfg, func(rec metrics.Recorder) error {
		builder := guide.New(cfg).WithRecorder(rec)
		if _, err := builder.Run(ctx, guide.TaskPreprocess); err != nil {
			return err
		}
		res := builder.SamplesResult()
		_, _ = fmt.Fprintf(g.Out, "Processed %d files (%d substitutions, %d binary) into %s\n",
			res.Files, res.Substitutions, res.BinaryFiles, res.Output)
		_, _ = fmt.Fprintf(g.Out, "%s = %s\n", cfg.Plugin.Token, builder.Version())
		return nil
	})
}

package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/config"
	"git.home.luguber.info/inful/guidebuilder/internal/guide"
	"git.home.luguber.info/inful/guidebuilder/internal/metadata"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
)

// MetadataFlags override the plugin section of the configuration.
type MetadataFlags struct {
	URL     string        `name:"url" help:"Metadata document URL (overrides plugin.metadata_url)"`
	Timeout time.Duration `name:"timeout" help:"HTTP timeout (overrides plugin.timeout)"`
}

func (f MetadataFlags) apply(cfg *config.Config) {
	if f.URL != "" {
		cfg.Plugin.MetadataURL = f.URL
	}
	if f.Timeout > 0 {
		cfg.Plugin.Timeout = f.Timeout.String()
	}
}

// ResolveCmd prints the latest plugin version.
type ResolveCmd struct {
	MetadataFlags `embed:""`
}

func (r *ResolveCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, true)
	if err != nil {
		return err
	}
	r.apply(cfg)
	ctx, cancel := signalContext()
	defer cancel()

	return withMetrics(cfg, func(rec metrics.Recorder) error {
		v, err := guide.New(cfg).WithRecorder(rec).Resolver().Resolve(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(g.Out, v)
		return nil
	})
}

// VersionsCmd lists the versions published in the metadata document.
type VersionsCmd struct {
	MetadataFlags `embed:""`
}

func (v *VersionsCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, true)
	if err != nil {
		return err
	}
	v.apply(cfg)
	ctx, cancel := signalContext()
	defer cancel()

	doc, err := guide.New(cfg).Resolver().Fetch(ctx)
	if err != nil {
		return err
	}
	printVersions(g, doc)
	return nil
}

func printVersions(g *Global, doc *metadata.Document) {
	for _, ver := range doc.SortedVersions() {
		_, _ = fmt.Fprintln(g.Out, ver)
	}
	latest, err := doc.Latest()
	if err != nil {
		latest = "-"
	}
	release := doc.Release()
	if release == "" {
		release = "-"
	}
	updated := doc.LastUpdated()
	if updated == "" {
		updated = "-"
	}
	_, _ = fmt.Fprintf(g.Out, "\nlatest:      %s\nrelease:     %s\nlastUpdated: %s\n", latest, release, updated)
}

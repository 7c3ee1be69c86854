package config

import (
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/metadata"
	"git.home.luguber.info/inful/guidebuilder/internal/samples"
)

const (
	DefaultMetadataURL   = metadata.DefaultBuildScanMetadataURL
	DefaultVersionToken  = "scanPluginVersion"
	DefaultTimeout       = 30 * time.Second
	DefaultSamplesSource = "samples"
	DefaultSamplesOutput = "build/samples"
)

// applyDefaults fills unset fields. The end delimiter follows the begin
// delimiter when only the latter is set.
func applyDefaults(cfg *Config) {
	if cfg.Plugin.MetadataURL == "" {
		cfg.Plugin.MetadataURL = DefaultMetadataURL
	}
	if cfg.Plugin.Token == "" {
		cfg.Plugin.Token = DefaultVersionToken
	}
	if cfg.Plugin.Timeout == "" {
		cfg.Plugin.Timeout = DefaultTimeout.String()
	}
	if cfg.Samples.Source == "" {
		cfg.Samples.Source = DefaultSamplesSource
	}
	if cfg.Samples.Output == "" {
		cfg.Samples.Output = DefaultSamplesOutput
	}
	if cfg.Samples.BeginToken == "" {
		cfg.Samples.BeginToken = samples.DefaultDelimiter
	}
	if cfg.Samples.EndToken == "" {
		cfg.Samples.EndToken = cfg.Samples.BeginToken
	}
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

// Validate checks a configuration with defaults applied.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	return v.validate()
}

// configurationValidator coordinates validation across configuration sections.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	if err := cv.validatePlugin(); err != nil {
		return err
	}
	if err := cv.validateSamples(); err != nil {
		return err
	}
	return cv.validateCommands()
}

func (cv *configurationValidator) validatePlugin() error {
	p := cv.config.Plugin
	u, err := url.Parse(p.MetadataURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("plugin.metadata_url must be an absolute http(s) URL", "metadata_url", p.MetadataURL)
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return invalid(fmt.Sprintf("invalid plugin.timeout: %s", p.Timeout), "timeout", p.Timeout)
	}
	if d <= 0 {
		return invalid("plugin.timeout must be positive", "timeout", p.Timeout)
	}
	return nil
}

func (cv *configurationValidator) validateSamples() error {
	s := cv.config.Samples
	if s.Source == s.Output {
		return invalid("samples.source and samples.output must differ", "output", s.Output)
	}
	if _, ok := s.Tokens[cv.config.Plugin.Token]; ok {
		return invalid(fmt.Sprintf("static token %q shadows the resolved plugin version", cv.config.Plugin.Token),
			"token", cv.config.Plugin.Token)
	}
	for _, name := range []string{TokenRepositoryPath, TokenMinimumGradleVersion} {
		if _, ok := s.Tokens[name]; ok {
			return invalid(fmt.Sprintf("static token %q shadows a guide setting", name), "token", name)
		}
	}
	// The resolved value is unknown here; a placeholder keeps Validate from
	// rejecting the empty slot.
	return cv.config.Tokens("0").Validate(s.BeginToken, s.EndToken)
}

func (cv *configurationValidator) validateCommands() error {
	for name, cmd := range map[string][]string{"docs.command": cv.config.Docs.Command, "test.command": cv.config.Test.Command} {
		if len(cmd) > 0 && strings.TrimSpace(cmd[0]) == "" {
			return invalid(name+" must start with an executable", "command", name)
		}
	}
	return nil
}

func invalid(msg, key, value string) error {
	return errors.ConfigError(msg).WithContext(key, value).Build()
}

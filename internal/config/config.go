package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "guidebuilder.yaml"

// Config represents the guide build configuration.
type Config struct {
	Guide   GuideConfig   `yaml:"guide"`
	Plugin  PluginConfig  `yaml:"plugin"`
	Samples SamplesConfig `yaml:"samples"`
	Docs    DocsConfig    `yaml:"docs,omitempty"`
	Test    TestConfig    `yaml:"test,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// GuideConfig describes the guide itself.
type GuideConfig struct {
	Name                 string `yaml:"name"`
	RepositoryPath       string `yaml:"repository_path,omitempty"`
	MinimumGradleVersion string `yaml:"minimum_gradle_version,omitempty"`
}

// PluginConfig locates the metadata document the plugin version is resolved from.
type PluginConfig struct {
	MetadataURL string `yaml:"metadata_url"`
	Token       string `yaml:"token"`             // token name receiving the resolved version
	Timeout     string `yaml:"timeout,omitempty"` // Go duration, e.g. "30s"
}

// SamplesConfig drives the preProcessSamples task.
type SamplesConfig struct {
	Source     string            `yaml:"source"`
	Output     string            `yaml:"output"`
	Clean      *bool             `yaml:"clean,omitempty"`
	Strict     *bool             `yaml:"strict,omitempty"`
	BeginToken string            `yaml:"begin_token,omitempty"`
	EndToken   string            `yaml:"end_token,omitempty"`
	Tokens     map[string]string `yaml:"tokens,omitempty"`
}

// DocsConfig drives the asciidoctor task. An empty command disables it.
type DocsConfig struct {
	Command    []string          `yaml:"command,omitempty"`
	Dir        string            `yaml:"dir,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// TestConfig drives the test task. An empty command disables it.
type TestConfig struct {
	Command          []string          `yaml:"command,omitempty"`
	Dir              string            `yaml:"dir,omitempty"`
	SystemProperties map[string]string `yaml:"system_properties,omitempty"`
}

// MetricsConfig enables writing Prometheus metrics at the end of a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// CleanOutput reports whether the sample output is replaced on each run (default true).
func (s SamplesConfig) CleanOutput() bool {
	return s.Clean == nil || *s.Clean
}

// StrictTokens reports whether unresolved tokens fail the run (default true).
func (s SamplesConfig) StrictTokens() bool {
	return s.Strict == nil || *s.Strict
}

// TimeoutDuration returns the parsed plugin.timeout, falling back to DefaultTimeout.
func (p PluginConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Load loads configuration from the specified file. Relative paths in the
// file are resolved against the file's directory.
func Load(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)
	if err := loadEnvFiles(dir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(dir)
	return cfg, nil
}

// Parse expands environment variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").
			Fatal().
			Build()
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Samples.Source = abs(c.Samples.Source)
	c.Samples.Output = abs(c.Samples.Output)
	c.Docs.Dir = abs(c.Docs.Dir)
	c.Test.Dir = abs(c.Test.Dir)
	c.Metrics.Textfile = abs(c.Metrics.Textfile)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create config directory").
				Fatal().
				WithContext("path", dir).
				Build()
		}
	}
	// #nosec G306 -- configuration is not secret
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return nil
}

// Example returns the configuration Init writes.
func Example() *Config {
	return &Config{
		Guide: GuideConfig{
			Name:                 "creating-build-scans",
			RepositoryPath:       "gradle-guides/creating-build-scans",
			MinimumGradleVersion: "5.1.1",
		},
		Plugin: PluginConfig{
			MetadataURL: DefaultMetadataURL,
			Token:       DefaultVersionToken,
			Timeout:     DefaultTimeout.String(),
		},
		Samples: SamplesConfig{
			Source: DefaultSamplesSource,
			Output: DefaultSamplesOutput,
		},
		Docs: DocsConfig{
			Command: []string{"asciidoctor", "-D", "build/docs", "contents/index.adoc"},
		},
		Test: TestConfig{
			Command: []string{"./gradlew", "test"},
		},
	}
}

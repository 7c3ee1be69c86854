package config

import "git.home.luguber.info/inful/guidebuilder/internal/samples"

// Token names derived from the guide section.
const (
	TokenRepositoryPath       = "repositoryPath"
	TokenMinimumGradleVersion = "minimumGradleVersion"
)

// Tokens builds the token map for a run: static tokens, guide settings and
// the resolved plugin version under plugin.token.
func (c *Config) Tokens(resolvedVersion string) samples.TokenMap {
	tokens := make(samples.TokenMap, len(c.Samples.Tokens)+3)
	for k, v := range c.Samples.Tokens {
		tokens[k] = v
	}
	if c.Guide.RepositoryPath != "" {
		tokens[TokenRepositoryPath] = c.Guide.RepositoryPath
	}
	if c.Guide.MinimumGradleVersion != "" {
		tokens[TokenMinimumGradleVersion] = c.Guide.MinimumGradleVersion
	}
	tokens[c.Plugin.Token] = resolvedVersion
	return tokens
}

// PreprocessOptions maps the samples section onto preprocessor options.
func (c *Config) PreprocessOptions() samples.Options {
	return samples.Options{
		BeginToken: c.Samples.BeginToken,
		EndToken:   c.Samples.EndToken,
		Clean:      c.Samples.CleanOutput(),
		Strict:     c.Samples.StrictTokens(),
	}
}

package samples

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
	"git.home.luguber.info/inful/guidebuilder/internal/workspace"
)

// Options tunes a preprocessing run.
type Options struct {
	BeginToken string // defaults to "@"
	EndToken   string // defaults to "@"
	// Clean replaces the output tree. When false, processed files are laid
	// over the existing output and files without a source counterpart stay.
	Clean bool
	// Strict fails the run when a placeholder-shaped token has no mapping.
	Strict bool
}

// DefaultOptions returns the options used by the preProcessSamples task.
func DefaultOptions() Options {
	return Options{BeginToken: DefaultDelimiter, EndToken: DefaultDelimiter, Clean: true, Strict: true}
}

// Result summarizes a preprocessing run.
type Result struct {
	Output        string
	Files         int
	Directories   int
	Substitutions int
	BinaryFiles   int
}

// Preprocessor copies a sample tree with token substitution.
type Preprocessor struct {
	source   string
	output   string
	tokens   TokenMap
	opts     Options
	recorder metrics.Recorder
}

// New creates a preprocessor for the given source/output pair.
func New(source, output string, tokens TokenMap) *Preprocessor {
	return &Preprocessor{
		source:   source,
		output:   output,
		tokens:   tokens,
		opts:     DefaultOptions(),
		recorder: metrics.NoopRecorder{},
	}
}

// WithOptions overrides the default options. Empty delimiters keep "@".
func (p *Preprocessor) WithOptions(opts Options) *Preprocessor {
	if opts.BeginToken == "" {
		opts.BeginToken = DefaultDelimiter
	}
	if opts.EndToken == "" {
		opts.EndToken = DefaultDelimiter
	}
	p.opts = opts
	return p
}

// WithRecorder injects a metrics recorder.
func (p *Preprocessor) WithRecorder(rec metrics.Recorder) *Preprocessor {
	if rec != nil {
		p.recorder = rec
	}
	return p
}

// Run processes the whole tree. Any failure aborts the run and leaves the
// previous output untouched.
func (p *Preprocessor) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := p.tokens.Validate(p.opts.BeginToken, p.opts.EndToken); err != nil {
		return nil, err
	}

	srcInfo, err := os.Stat(p.source)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "sample source directory is not readable").
			Fatal().
			WithContext("path", p.source).
			Build()
	}
	if !srcInfo.IsDir() {
		return nil, errors.FileSystemError("sample source is not a directory").
			WithContext("path", p.source).
			Build()
	}
	if err := p.checkDisjoint(); err != nil {
		return nil, err
	}

	ws := workspace.NewManagerFor(p.output)
	if err := ws.Create(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "output location is not writable").
			Fatal().
			WithContext("path", p.output).
			Build()
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup staging directory", logfields.Error(err))
		}
	}()
	if err := os.Chmod(ws.GetPath(), srcInfo.Mode().Perm()|0o700); err != nil {
		return nil, fsError(err, "set output permissions", ws.GetPath())
	}

	// WalkDir does not descend into a symlinked root.
	root, err := filepath.EvalSymlinks(p.source)
	if err != nil {
		return nil, fsError(err, "resolve sample source", p.source)
	}

	res := &Result{Output: p.output}
	repl := newReplacer(p.tokens, p.opts.BeginToken, p.opts.EndToken)
	unresolved := map[string][]string{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fsError(walkErr, "read sample tree", path)
		}
		if err := ctx.Err(); err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "preprocessing canceled").Build()
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fsError(err, "compute relative path", path)
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(ws.GetPath(), rel)

		info, err := os.Stat(path) // follows symlinks
		if err != nil {
			return fsError(err, "stat sample file", path)
		}
		if info.IsDir() {
			if d.Type()&fs.ModeSymlink != 0 {
				return errors.FileSystemError("symlinked directories are not supported in sample trees").
					WithContext("path", path).
					Build()
			}
			if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return fsError(err, "create output directory", target)
			}
			res.Directories++
			return nil
		}

		n, names, binary, err := p.processFile(path, target, info.Mode().Perm(), repl)
		if err != nil {
			return err
		}
		res.Files++
		res.Substitutions += n
		if binary {
			res.BinaryFiles++
		}
		if len(names) > 0 {
			unresolved[rel] = names
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.opts.Strict && len(unresolved) > 0 {
		return nil, unresolvedError(unresolved, p.opts)
	}
	if err := p.publish(ws); err != nil {
		return nil, err
	}

	p.recorder.AddFilesCopied(res.Files)
	p.recorder.AddSubstitutions(res.Substitutions)
	slog.Info("Samples preprocessed",
		logfields.Path(p.output),
		logfields.Files(res.Files),
		logfields.Tokens(res.Substitutions),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1e3))
	return res, nil
}

func (p *Preprocessor) processFile(src, dst string, perm fs.FileMode, repl *replacer) (int, []string, bool, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, nil, false, fsError(err, "read sample file", src)
	}
	var (
		count int
		names []string
	)
	binary := looksBinary(data)
	if binary {
		// Binary content is copied verbatim; mapped placeholders in it stay
		// unresolved.
		if names = repl.Known(data); len(names) > 0 {
			slog.Warn("Binary sample file contains placeholders", logfields.Path(src), slog.Any("tokens", names))
		}
	} else {
		data, count, names = repl.Replace(data)
	}
	if err := os.WriteFile(dst, data, perm); err != nil {
		return 0, nil, false, fsError(err, "write output file", dst)
	}
	// WriteFile honors umask; keep the source mode exactly.
	if err := os.Chmod(dst, perm); err != nil {
		return 0, nil, false, fsError(err, "set output file mode", dst)
	}
	return count, names, binary, nil
}

func (p *Preprocessor) publish(ws *workspace.Manager) error {
	if p.opts.Clean {
		if err := ws.Commit(p.output); err != nil {
			return fsError(err, "publish processed samples", p.output)
		}
		return nil
	}
	if err := os.MkdirAll(p.output, 0o750); err != nil {
		return fsError(err, "create output directory", p.output)
	}
	if err := CopyDir(ws.GetPath(), p.output); err != nil {
		return fsError(err, "overlay processed samples", p.output)
	}
	return nil
}

// checkDisjoint refuses output locations inside the source tree (and vice
// versa); the copy would otherwise read its own output.
func (p *Preprocessor) checkDisjoint() error {
	src, err := filepath.Abs(p.source)
	if err != nil {
		return fsError(err, "resolve source path", p.source)
	}
	out, err := filepath.Abs(p.output)
	if err != nil {
		return fsError(err, "resolve output path", p.output)
	}
	if within(out, src) || within(src, out) {
		return errors.ValidationError("sample source and output directories overlap").
			WithContext("source", src).
			WithContext("output", out).
			Build()
	}
	return nil
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func fsError(err error, op, path string) error {
	if errors.IsClassified(err) {
		return err
	}
	return errors.WrapError(err, errors.CategoryFileSystem, op).
		Fatal().
		WithContext("path", path).
		Build()
}

func unresolvedError(unresolved map[string][]string, opts Options) error {
	files := make([]string, 0, len(unresolved))
	for f := range unresolved {
		files = append(files, f)
	}
	slices.Sort(files)

	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteString("; ")
		}
		names := slices.Compact(slices.Sorted(slices.Values(unresolved[f])))
		for j, n := range names {
			names[j] = opts.BeginToken + n + opts.EndToken
		}
		fmt.Fprintf(&b, "%s: %s", f, strings.Join(names, ", "))
	}
	return errors.BuildError("unresolved tokens in sample output").
		WithCause(fmt.Errorf("%s", b.String())).
		WithContext("files", len(files)).
		Build()
}

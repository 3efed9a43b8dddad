package embed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the raw text behind a file reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// Highlighter turns raw text into display markup.
type Highlighter interface {
	Highlight(text, lang, theme string) (string, error)
}

// HighlightConfig is passed through to the highlighter for every file.
type HighlightConfig struct {
	Theme string
}

// ContentRecord is one fetched and highlighted file.
type ContentRecord struct {
	Ref    string
	Tag    string
	Raw    string
	Markup string
}

// Result is the outcome of loading one file reference.
type Result struct {
	Ref    string
	Record *ContentRecord
	Err    error
}

// OK reports whether the file loaded.
func (r Result) OK() bool {
	return r.Err == nil && r.Record != nil
}

// LoadReport holds the per-file results in input order and the preview source.
type LoadReport struct {
	Results []Result
	// PreviewSource is the first loaded file whose tag marks it as the page
	// to render. Empty if none qualified.
	PreviewSource string
}

// Failed returns the load errors in input order.
func (r *LoadReport) Failed() []error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// DefaultPreviewTags are the type tags treated as renderable pages.
var DefaultPreviewTags = []string{"html", "htm", "md", "markdown"}

// Loader resolves file references into content records.
type Loader struct {
	fetcher     Fetcher
	highlighter Highlighter
	previewTags map[string]bool
	concurrency int
	logger      *slog.Logger
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithPreviewTags replaces the set of tags that mark a file as the preview page.
func WithPreviewTags(tags []string) LoaderOption {
	return func(l *Loader) {
		l.previewTags = tagSet(tags)
	}
}

// WithConcurrency caps the number of fetches in flight.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger used to report per-file failures.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader backed by the given collaborators.
func NewLoader(fetcher Fetcher, highlighter Highlighter, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:     fetcher,
		highlighter: highlighter,
		previewTags: tagSet(DefaultPreviewTags),
		concurrency: 4,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches and highlights every reference. A failing file yields a
// LoadError in its slot and does not stop the others. The only error
// returned is the context's, in which case no results are reported.
func (l *Loader) Load(ctx context.Context, refs []string, cfg HighlightConfig) (*LoadReport, error) {
	ctx, span := otel.Tracer("webcode/embed").Start(ctx, "embed.Load")
	defer span.End()
	span.SetAttributes(attribute.Int("webcode.files", len(refs)))

	results := make([]Result, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = l.LoadFile(gctx, ref, cfg)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := &LoadReport{Results: results}
	for _, res := range results {
		if res.Err != nil {
			l.logger.Warn("file failed to load", "ref", res.Ref, "err", res.Err)
			continue
		}
		if report.PreviewSource == "" && l.previewTags[res.Record.Tag] {
			report.PreviewSource = res.Ref
		}
	}
	span.SetAttributes(attribute.Int("webcode.failed", len(report.Failed())))
	return report, nil
}

// LoadFile fetches and highlights a single reference.
func (l *Loader) LoadFile(ctx context.Context, ref string, cfg HighlightConfig) Result {
	ctx, span := otel.Tracer("webcode/embed").Start(ctx, "embed.LoadFile")
	defer span.End()
	span.SetAttributes(attribute.String("webcode.ref", ref))

	fail := func(err error) Result {
		span.SetStatus(codes.Error, err.Error())
		return Result{Ref: ref, Err: err}
	}

	tag, err := TypeTag(ref)
	if err != nil {
		return fail(err)
	}

	raw, err := l.fetcher.Fetch(ctx, ref)
	if err != nil {
		return fail(&LoadError{Ref: ref, Cause: err})
	}

	markup, err := l.highlighter.Highlight(raw, tag, cfg.Theme)
	if err != nil {
		return fail(&LoadError{Ref: ref, Cause: fmt.Errorf("highlight: %w", err)})
	}

	return Result{
		Ref: ref,
		Record: &ContentRecord{
			Ref:    ref,
			Tag:    tag,
			Raw:    raw,
			Markup: markup,
		},
	}
}

// TypeTag returns the lower-cased text after the last dot of the reference's
// final path element. Directory references and URLs without a path have no
// type.
func TypeTag(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	if _, rest, ok := strings.Cut(trimmed, "://"); ok {
		_, p, hasPath := strings.Cut(rest, "/")
		if !hasPath {
			return "", fmt.Errorf("%w: %q has no file path", ErrInvalidFileRef, ref)
		}
		trimmed = p
	}
	if trimmed == "" || strings.HasSuffix(trimmed, "/") {
		return "", fmt.Errorf("%w: %q names a directory", ErrInvalidFileRef, ref)
	}
	base := path.Base(trimmed)
	dot := strings.LastIndex(base, ".")
	if dot < 0 || dot == len(base)-1 {
		return "", fmt.Errorf("%w: %q has no type suffix", ErrInvalidFileRef, ref)
	}
	return strings.ToLower(base[dot+1:]), nil
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			set[t] = true
		}
	}
	return set
}

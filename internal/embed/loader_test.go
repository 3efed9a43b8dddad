package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapFetcher struct {
	mu    sync.Mutex
	files map[string]string
	calls []string
}

func (f *mapFetcher) Fetch(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref)
	body, ok := f.files[ref]
	if !ok {
		return "", fmt.Errorf("%s: not found", ref)
	}
	return body, nil
}

type tagHighlighter struct {
	fail map[string]bool
}

func (h tagHighlighter) Highlight(text, lang, theme string) (string, error) {
	if h.fail[lang] {
		return "", errors.New("no grammar")
	}
	return fmt.Sprintf("<%s:%s>%s", theme, lang, text), nil
}

func newTestLoader(files map[string]string) (*Loader, *mapFetcher) {
	f := &mapFetcher{files: files}
	return NewLoader(f, tagHighlighter{}), f
}

func TestTypeTag(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "index.html", want: "html"},
		{ref: "src/app.JS", want: "js"},
		{ref: "https://example.com/a/style.css?v=2", want: "css"},
		{ref: "archive.tar.gz", want: "gz"},
		{ref: `dir\win.ts`, want: "ts"},
		{ref: "Makefile", wantErr: true},
		{ref: "trailing.", wantErr: true},
		{ref: "dir.d/noext", wantErr: true},
		{ref: "", wantErr: true},
		{ref: "https://example.com/", wantErr: true},
		{ref: "https://example.com", wantErr: true},
		{ref: "https://cdn.example.com/lib/", wantErr: true},
		{ref: "https://example.com/?file=a.js", wantErr: true},
		{ref: "assets.d/", wantErr: true},
		{ref: "https://example.com/app.mjs#top", want: "mjs"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := TypeTag(tt.ref)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFileRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_PartialFailure(t *testing.T) {
	loader, _ := newTestLoader(map[string]string{
		"a.html": "<p>a</p>",
		"b.css":  "p{}",
	})

	report, err := loader.Load(context.Background(), []string{"a.html", "b.css", "missing.js"}, HighlightConfig{Theme: "t"})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.True(t, report.Results[0].OK())
	assert.True(t, report.Results[1].OK())
	assert.False(t, report.Results[2].OK())

	var loadErr *LoadError
	require.ErrorAs(t, report.Results[2].Err, &loadErr)
	assert.Equal(t, "missing.js", loadErr.Ref)
	assert.Len(t, report.Failed(), 1)

	assert.Equal(t, "html", report.Results[0].Record.Tag)
	assert.Equal(t, "<t:html><p>a</p>", report.Results[0].Record.Markup)
	assert.Equal(t, "a.html", report.PreviewSource)
}

func TestLoad_InvalidRefDoesNotFetch(t *testing.T) {
	loader, fetcher := newTestLoader(map[string]string{"ok.js": "1"})

	report, err := loader.Load(context.Background(), []string{"README", "ok.js"}, HighlightConfig{})
	require.NoError(t, err)
	require.ErrorIs(t, report.Results[0].Err, ErrInvalidFileRef)
	assert.True(t, report.Results[1].OK())
	assert.Equal(t, []string{"ok.js"}, fetcher.calls)
}

func TestLoad_HighlightFailureIsLoadError(t *testing.T) {
	f := &mapFetcher{files: map[string]string{"a.css": "x", "b.js": "y"}}
	loader := NewLoader(f, tagHighlighter{fail: map[string]bool{"css": true}})

	report, err := loader.Load(context.Background(), []string{"a.css", "b.js"}, HighlightConfig{})
	require.NoError(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, report.Results[0].Err, &loadErr)
	assert.Contains(t, loadErr.Error(), "highlight")
	assert.True(t, report.Results[1].OK())
}

func TestLoad_PreviewSourceFirstMatchWins(t *testing.T) {
	loader, _ := newTestLoader(map[string]string{
		"one.html": "1",
		"two.html": "2",
		"doc.md":   "# d",
	})

	report, err := loader.Load(context.Background(), []string{"missing.html", "doc.md", "one.html", "two.html"}, HighlightConfig{})
	require.NoError(t, err)
	assert.Equal(t, "doc.md", report.PreviewSource)
}

func TestLoad_PreviewTagsOption(t *testing.T) {
	f := &mapFetcher{files: map[string]string{"doc.md": "#", "page.html": "<p>"}}
	loader := NewLoader(f, tagHighlighter{}, WithPreviewTags([]string{".HTML"}))

	report, err := loader.Load(context.Background(), []string{"doc.md", "page.html"}, HighlightConfig{})
	require.NoError(t, err)
	assert.Equal(t, "page.html", report.PreviewSource)
}

func TestLoad_NoPreviewSource(t *testing.T) {
	loader, _ := newTestLoader(map[string]string{"a.css": "x"})

	report, err := loader.Load(context.Background(), []string{"a.css"}, HighlightConfig{})
	require.NoError(t, err)
	assert.Empty(t, report.PreviewSource)
}

func TestLoad_ResultsKeepInputOrder(t *testing.T) {
	files := make(map[string]string)
	var refs []string
	for i := 0; i < 20; i++ {
		ref := fmt.Sprintf("f%02d.js", i)
		files[ref] = strings.Repeat("x", i)
		refs = append(refs, ref)
	}
	f := &mapFetcher{files: files}
	loader := NewLoader(f, tagHighlighter{}, WithConcurrency(8))

	report, err := loader.Load(context.Background(), refs, HighlightConfig{})
	require.NoError(t, err)
	for i, res := range report.Results {
		require.True(t, res.OK())
		assert.Equal(t, refs[i], res.Ref)
		assert.Equal(t, files[refs[i]], res.Record.Raw)
	}
}

type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestLoad_CancelledDiscardsResults(t *testing.T) {
	loader := NewLoader(blockingFetcher{}, tagHighlighter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := loader.Load(ctx, []string{"a.js", "b.css"}, HighlightConfig{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

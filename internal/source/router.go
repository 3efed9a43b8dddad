package source

import (
	"context"
	"errors"
)

var errNoRemote = errors.New("remote references are disabled")

// Router sends http(s) references to the remote fetcher and everything else
// to the local directory.
type Router struct {
	Local  *Dir
	Remote *HTTP
}

// NewRouter creates a router over a root directory with remote fetching enabled.
func NewRouter(root string) *Router {
	return &Router{
		Local:  NewDir(root),
		Remote: NewHTTP(nil),
	}
}

// Fetch implements embed.Fetcher.
func (r *Router) Fetch(ctx context.Context, ref string) (string, error) {
	if IsRemote(ref) {
		if r.Remote == nil {
			return "", errNoRemote
		}
		return r.Remote.Fetch(ctx, ref)
	}
	return r.Local.Fetch(ctx, ref)
}

// Expand expands local glob patterns in place; remote references pass through.
func (r *Router) Expand(refs []string) ([]string, error) {
	var out []string
	for _, ref := range refs {
		if IsRemote(ref) {
			out = append(out, ref)
			continue
		}
		expanded, err := r.Local.Expand([]string{ref})
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return dedupe(out), nil
}

// Watchable returns the absolute path of a local ref.
func (r *Router) Watchable(ref string) (string, bool) {
	if IsRemote(ref) || r.Local == nil {
		return "", false
	}
	abs, err := r.Local.Abs(ref)
	if err != nil {
		return "", false
	}
	return abs, true
}

func dedupe(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

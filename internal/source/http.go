package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySize bounds a single remote file.
const maxBodySize = 4 << 20

// HTTP fetches absolute http(s) references.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates a remote fetcher. A nil client gets a 30s timeout.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{client: client}
}

// Fetch downloads ref and returns its body.
func (h *HTTP) Fetch(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", ref, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", ref, err)
	}
	if len(data) > maxBodySize {
		return "", fmt.Errorf("GET %s: body exceeds %d bytes", ref, maxBodySize)
	}
	return string(data), nil
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

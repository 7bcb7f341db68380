package blocklist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Builder rebuilds the membership index from a plaintext source: a local
// file or an http(s) URL, one IP or small CIDR per line.
type Builder struct {
	index      *Index
	source     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewBuilder creates a builder over an open index.
func NewBuilder(index *Index, source string, logger *slog.Logger) *Builder {
	return &Builder{
		index:      index,
		source:     source,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Rebuild loads the source, parses it and swaps the index contents.
func (b *Builder) Rebuild(ctx context.Context) error {
	started := time.Now()

	content, err := b.load(ctx)
	if err != nil {
		return fmt.Errorf("load blocklist source: %w", err)
	}

	ips := ParseList(content)
	if len(ips) == 0 {
		// An empty parse on a rebuild is almost always a broken download;
		// keep the previous set.
		return fmt.Errorf("blocklist source %s yielded no entries", b.source)
	}

	if err := b.index.Rebuild(ips); err != nil {
		return err
	}

	b.logger.Info("blocklist index rebuilt",
		slog.String("source", b.source),
		slog.Int("entries", len(ips)),
		slog.Duration("took", time.Since(started)),
	)
	return nil
}

func (b *Builder) load(ctx context.Context) (string, error) {
	if strings.HasPrefix(b.source, "http://") || strings.HasPrefix(b.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.source, nil)
		if err != nil {
			return "", err
		}
		resp, err := b.httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("status %d", resp.StatusCode)
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	raw, err := os.ReadFile(b.source)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

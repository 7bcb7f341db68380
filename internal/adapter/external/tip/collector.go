package tip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/noplanalderson/argus/internal/entity"
)

// JobStore persists one aggregation run's raw provider payloads per
// observable, so a re-analysis inside the freshness window can reuse them
// without burning provider quota.
type JobStore interface {
	GetLatest(ctx context.Context, observable string) ([]entity.ProviderResult, time.Time, error)
	Replace(ctx context.Context, observable string, results []entity.ProviderResult) error
	Delete(ctx context.Context, observable string) error
}

// Config tunes the collector's fan-out behaviour.
type Config struct {
	Concurrency    int           // parallel provider requests per run
	RequestTimeout time.Duration // per-provider request deadline
	Freshness      time.Duration // max age of a reusable stored run
	RateLimit      rate.Limit    // outbound requests per second across all runs
	RateBurst      int
	CacheTTL       time.Duration // in-memory result cache TTL
}

const (
	defaultConcurrency    = 3
	defaultRequestTimeout = 10 * time.Second
	defaultFreshness      = 60 * 24 * time.Hour
	maxResponseBytes      = 4 << 20
)

// Collector fans out descriptor-driven provider requests with a bounded
// worker pool and captures per-provider outcomes. A provider failure never
// fails the run; it is recorded and its weight redistributed downstream.
type Collector struct {
	client          *http.Client
	ipDescriptors   []Descriptor
	hashDescriptors []Descriptor
	jobs            JobStore
	cache           *ResultCache
	limiter         *rate.Limiter
	concurrency     int
	freshness       time.Duration
	log             *slog.Logger
}

// NewCollector wires a collector over the given descriptor sets.
func NewCollector(cfg Config, ip, hash []Descriptor, jobs JobStore, log *slog.Logger) *Collector {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = defaultFreshness
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rate.Limit(5)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = cfg.Concurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	return &Collector{
		client:          &http.Client{Timeout: cfg.RequestTimeout},
		ipDescriptors:   ip,
		hashDescriptors: hash,
		jobs:            jobs,
		cache:           NewResultCache(cfg.CacheTTL),
		limiter:         rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		concurrency:     cfg.Concurrency,
		freshness:       cfg.Freshness,
		log:             log,
	}
}

// Descriptors returns the provider set used for an observable type.
func (c *Collector) Descriptors(t entity.ObservableType) []Descriptor {
	if t == entity.ObservableHash {
		return c.hashDescriptors
	}
	return c.ipDescriptors
}

// Collect gathers raw provider results for one observable. Unless force is
// set, a stored run younger than the freshness window is reused as-is.
// The returned flag reports whether stored results were reused.
func (c *Collector) Collect(ctx context.Context, obs entity.Observable, force bool) ([]entity.ProviderResult, bool, error) {
	if !force {
		if cached, found := c.cache.Get(obs.Value); found {
			return cached, true, nil
		}
		if stored, fetchedAt, err := c.jobs.GetLatest(ctx, obs.Value); err != nil {
			c.log.Warn("stored provider results unavailable",
				slog.String("observable", obs.Value), slog.Any("error", err))
		} else if len(stored) > 0 && time.Since(fetchedAt) < c.freshness {
			c.cache.Set(obs.Value, stored)
			return stored, true, nil
		}
	}

	descriptors := c.Descriptors(obs.Type)
	if len(descriptors) == 0 {
		return nil, false, fmt.Errorf("no providers configured for %s observables", obs.Type)
	}

	results := make([]entity.ProviderResult, len(descriptors))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, d := range descriptors {
		wg.Add(1)
		go func(i int, d Descriptor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = c.fetch(ctx, d, obs.Value)
		}(i, d)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed == len(results) {
		c.log.Error("all providers failed",
			slog.String("observable", obs.Value), slog.Int("providers", len(results)))
	}

	if err := c.jobs.Replace(ctx, obs.Value, results); err != nil {
		c.log.Warn("persist provider results",
			slog.String("observable", obs.Value), slog.Any("error", err))
	}
	c.cache.Set(obs.Value, results)

	return results, false, nil
}

// fetch runs one provider request under its own deadline and maps the
// outcome to a ProviderResult. Every failure mode lands in the result's
// Error field; fetch never panics the run.
func (c *Collector) fetch(ctx context.Context, d Descriptor, observable string) entity.ProviderResult {
	result := entity.ProviderResult{Provider: d.Name, FetchedAt: time.Now().UTC()}

	if err := c.limiter.Wait(ctx); err != nil {
		result.Error = fmt.Sprintf("rate limiter: %v", err)
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.client.Timeout)
	defer cancel()

	req, err := d.BuildRequest(observable)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := c.client.Do(req.WithContext(reqCtx))
	if err != nil {
		result.Error = err.Error()
		c.log.Debug("provider request failed",
			slog.String("provider", d.Name),
			slog.String("observable", observable),
			slog.Any("error", err))
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result.Error = fmt.Sprintf("read body: %v", err)
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Error = fmt.Sprintf("status %d", resp.StatusCode)
		c.log.Debug("provider returned error status",
			slog.String("provider", d.Name),
			slog.String("observable", observable),
			slog.Int("status", resp.StatusCode))
		return result
	}

	result.Success = true
	result.Raw = body
	return result
}

// ProviderStatus describes one configured provider for the status surface.
type ProviderStatus struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Providers lists all configured providers across both observable types.
func (c *Collector) Providers() []ProviderStatus {
	var out []ProviderStatus
	for _, d := range c.ipDescriptors {
		out = append(out, ProviderStatus{Name: d.Name, Type: string(entity.ObservableIP)})
	}
	for _, d := range c.hashDescriptors {
		out = append(out, ProviderStatus{Name: d.Name, Type: string(entity.ObservableHash)})
	}
	return out
}

// CacheStats exposes the in-memory result cache statistics.
func (c *Collector) CacheStats() CacheStats {
	return c.cache.Stats()
}

// ClearCache drops the in-memory result cache. Stored runs in the job store
// are untouched; use force collection to bypass those.
func (c *Collector) ClearCache() {
	c.cache.Clear()
}

// Invalidate forgets everything held for one observable: the in-memory
// cache entry and the stored run. The next Collect refetches from scratch.
func (c *Collector) Invalidate(ctx context.Context, observable string) error {
	c.cache.Delete(observable)
	if err := c.jobs.Delete(ctx, observable); err != nil {
		return fmt.Errorf("delete stored provider results: %w", err)
	}
	return nil
}

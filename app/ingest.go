// Package app contains the IngestService, which loads a collection and its
// items into a running catalog through the transaction API.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artpar/stacgate/adapters/idgen"
	"github.com/artpar/stacgate/adapters/metrics"
	"github.com/artpar/stacgate/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Ingest outcomes recorded in metrics.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeFailed   = "failed"
)

// IngestOptions configures an IngestService.
type IngestOptions struct {
	// BaseURL of the catalog, e.g. http://localhost:8080.
	BaseURL string

	// Workers posting items concurrently. Zero means 4.
	Workers int

	// StripMembers are removed from every feature before posting.
	StripMembers []string

	// IDs names features that have no id. Nil means random UUIDs.
	IDs ports.IDGenerator

	Client  *http.Client
	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// IngestResult summarizes a run.
type IngestResult struct {
	Collection string
	Created    int64
	Existing   int64
	Failed     int64
}

// IngestService posts collections and items to a catalog.
type IngestService struct {
	base    *url.URL
	workers int
	strip   []string
	ids     ports.IDGenerator
	client  *http.Client
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewIngestService creates a new ingest service.
func NewIngestService(opts IngestOptions) (*IngestService, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog url %q", opts.BaseURL)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.IDs == nil {
		opts.IDs = idgen.UUID{}
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IngestService{
		base:    base,
		workers: opts.Workers,
		strip:   opts.StripMembers,
		ids:     opts.IDs,
		client:  opts.Client,
		logger:  opts.Logger.With().Str("component", "ingest").Logger(),
		metrics: opts.Metrics,
	}, nil
}

// Run posts the collection document, then every feature of the GeoJSON
// feature collection as an item of it. An existing collection is kept;
// features without an id get a random one. Item failures are counted and
// logged, and the first one is returned after all workers finish.
func (s *IngestService) Run(ctx context.Context, collection, features []byte) (IngestResult, error) {
	var coll map[string]any
	if err := json.Unmarshal(collection, &coll); err != nil {
		return IngestResult{}, fmt.Errorf("decode collection: %w", err)
	}
	id, _ := coll["id"].(string)
	if id == "" {
		return IngestResult{}, fmt.Errorf("collection has no id")
	}

	var index struct {
		Features []map[string]any `json:"features"`
	}
	if err := json.Unmarshal(features, &index); err != nil {
		return IngestResult{}, fmt.Errorf("decode features: %w", err)
	}

	res := IngestResult{Collection: id}
	status, err := s.post(ctx, "collections", coll)
	switch {
	case err != nil:
		return res, fmt.Errorf("create collection %s: %w", id, err)
	case status == http.StatusConflict:
		s.logger.Info().Str("collection", id).Msg("collection exists, adding items")
	default:
		s.logger.Info().Str("collection", id).Msg("collection created")
	}

	itemsPath := "collections/" + url.PathEscape(id) + "/items"
	var created, existing, failed atomic.Int64
	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, feat := range index.Features {
		feat := s.prepare(feat)
		g.Go(func() error {
			status, err := s.post(gctx, itemsPath, feat)
			switch {
			case err != nil:
				failed.Add(1)
				s.metrics.RecordIngest(OutcomeFailed)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("item %v: %w", feat["id"], err)
				}
				mu.Unlock()
				s.logger.Warn().Err(err).Interface("item", feat["id"]).Msg("item rejected")
			case status == http.StatusConflict:
				existing.Add(1)
				s.metrics.RecordIngest(OutcomeExisting)
			default:
				created.Add(1)
				s.metrics.RecordIngest(OutcomeCreated)
			}
			// Cancellation is the only error that stops the pool.
			return gctx.Err()
		})
	}
	waitErr := g.Wait()

	res.Created, res.Existing, res.Failed = created.Load(), existing.Load(), failed.Load()
	s.logger.Info().
		Str("collection", id).
		Int64("created", res.Created).
		Int64("existing", res.Existing).
		Int64("failed", res.Failed).
		Msg("ingest finished")

	if waitErr != nil {
		return res, waitErr
	}
	return res, firstErr
}

func (s *IngestService) prepare(feat map[string]any) map[string]any {
	for _, m := range s.strip {
		delete(feat, m)
	}
	if id, _ := feat["id"].(string); id == "" {
		feat["id"] = s.ids.New()
	}
	return feat
}

// post sends v as JSON. A 409 is reported through the status, any other
// non-2xx response is an error.
func (s *IngestService) post(ctx context.Context, path string, v any) (int, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base.ResolveReference(&url.URL{Path: path}).String(), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict || resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

// ReadSource reads a local file or an http(s) URL.
func ReadSource(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

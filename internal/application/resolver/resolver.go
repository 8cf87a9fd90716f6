package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/metrics"
	"github.com/singsphere/jukebox/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/singsphere/jukebox/internal/application/resolver"

// WildcardTerm lists every song in the bucket instead of querying the index.
const WildcardTerm = "all"

const wildcardMode = "all"

type Config struct {
	Bucket          string
	PresignTTL      time.Duration
	MaxResults      int
	AudioExtensions []string
}

type Resolver struct {
	store  domain.ObjectStore
	index  domain.SearchIndex
	cfg    Config
	logger logging.Logger
}

func New(store domain.ObjectStore, index domain.SearchIndex, cfg Config, logger logging.Logger) *Resolver {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Resolver{
		store:  store,
		index:  index,
		cfg:    cfg,
		logger: logger,
	}
}

// Search resolves a free-text term into playable results. Terms that look
// like a file name are looked up exactly by object key, anything else is a
// fuzzy match over the index.
func (r *Resolver) Search(ctx context.Context, term string) ([]domain.SongResult, error) {
	raw := strings.TrimSpace(term)
	normalized := strings.ToLower(raw)
	if normalized == "" {
		return nil, domain.ErrEmptyQuery
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "Resolver.Search",
		attribute.String("jukebox.search_term", normalized),
	)

	var (
		mode    string
		results []domain.SongResult
		err     error
	)
	switch {
	case normalized == WildcardTerm:
		mode = wildcardMode
		results, err = r.listAll(ctx)
	case r.looksLikeFileName(normalized):
		mode = string(domain.QueryExact)
		results, err = r.exact(ctx, raw, normalized)
	default:
		mode = string(domain.QueryFuzzy)
		results, err = r.query(ctx, domain.Query{Mode: domain.QueryFuzzy, Term: normalized, Size: r.cfg.MaxResults})
	}

	if err == nil && len(results) == 0 {
		err = fmt.Errorf("%w: %s", domain.ErrNoResults, normalized)
	}

	span.SetAttributes(attribute.String("jukebox.query_mode", mode), attribute.Int("jukebox.results", len(results)))
	tracing.EndSpan(span, err)

	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues(mode, metrics.Outcome(err, isRejection)).Inc()

	extra := map[logging.ExtraKey]any{
		logging.SearchTerm: normalized,
		logging.QueryMode:  mode,
		logging.Results:    len(results),
	}
	switch {
	case errors.Is(err, domain.ErrNoResults):
		r.logger.Info(logging.SearchIndex, logging.Search, "no songs matched", extra)
		return nil, err
	case err != nil:
		extra[logging.ErrorMessage] = err.Error()
		r.logger.Error(logging.SearchIndex, logging.Search, "search failed", extra)
		return nil, err
	}

	r.logger.Debug(logging.SearchIndex, logging.Search, "search resolved", extra)
	return results, nil
}

func (r *Resolver) looksLikeFileName(term string) bool {
	for _, ext := range r.cfg.AudioExtensions {
		if strings.Contains(term, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// exact tries the key as typed first and then lower-cased, since older
// records were written with lower-cased ids.
func (r *Resolver) exact(ctx context.Context, raw, normalized string) ([]domain.SongResult, error) {
	results, err := r.query(ctx, domain.Query{Mode: domain.QueryExact, Term: raw, Size: r.cfg.MaxResults})
	if err != nil || len(results) > 0 || raw == normalized {
		return results, err
	}
	return r.query(ctx, domain.Query{Mode: domain.QueryExact, Term: normalized, Size: r.cfg.MaxResults})
}

func (r *Resolver) query(ctx context.Context, q domain.Query) ([]domain.SongResult, error) {
	hits, err := r.index.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(hits) > q.Size {
		hits = hits[:q.Size]
	}

	results := make([]domain.SongResult, 0, len(hits))
	for _, hit := range hits {
		bucket := hit.Bucket
		if bucket == "" {
			bucket = r.cfg.Bucket
		}
		url, err := r.store.PresignedURL(ctx, bucket, hit.ObjectKey, r.cfg.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", hit.ObjectKey, err)
		}
		results = append(results, domain.SongResult{
			URL:        url,
			SearchTerm: hit.ObjectKey,
			Labels:     hit.LabelList(),
		})
	}

	return results, nil
}

// listAll reads the bucket directly. Objects removed between list and head
// are skipped.
func (r *Resolver) listAll(ctx context.Context) ([]domain.SongResult, error) {
	keys, err := r.store.List(ctx, r.cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.cfg.Bucket, err)
	}

	results := make([]domain.SongResult, 0, len(keys))
	for _, key := range keys {
		meta, err := r.store.Head(ctx, r.cfg.Bucket, key)
		if errors.Is(err, domain.ErrObjectNotFound) {
			r.logger.Debug(logging.S3, logging.Search, "object vanished during listing", map[logging.ExtraKey]any{
				logging.ObjectKey: key,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("head %s: %w", key, err)
		}

		url, err := r.store.PresignedURL(ctx, r.cfg.Bucket, key, r.cfg.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", key, err)
		}

		results = append(results, domain.SongResult{
			URL:        url,
			SearchTerm: key,
			Labels:     domain.NormalizeLabels(meta.Labels()),
		})
	}

	return results, nil
}

func isRejection(err error) bool {
	return domain.KindOf(err) != domain.KindInfrastructure
}

package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// IndexTimestampLayout is the second-precision ISO-8601 layout stored in index records.
const IndexTimestampLayout = "2006-01-02T15:04:05"

// LabelsMetadataKey is the object metadata field holding comma separated labels.
const LabelsMetadataKey = "customlabels"

type SongState string

const (
	SongUploaded  SongState = "uploaded"
	SongIndexed   SongState = "indexed"
	SongQueryable SongState = "queryable"
)

var songTransitions = map[SongState]SongState{
	SongUploaded: SongIndexed,
	SongIndexed:  SongQueryable,
}

// Song is an uploaded audio object and its position in the
// uploaded -> indexed -> queryable lifecycle.
type Song struct {
	Key       string    `json:"key"`
	Bucket    string    `json:"bucket"`
	CreatedAt time.Time `json:"createdAt"`
	Labels    []string  `json:"labels"`
	State     SongState `json:"state"`
}

func NewUploadedSong(bucket, key string, createdAt time.Time, rawLabels string) *Song {
	return &Song{
		Key:       key,
		Bucket:    bucket,
		CreatedAt: createdAt.UTC().Truncate(time.Second),
		Labels:    NormalizeLabels(rawLabels),
		State:     SongUploaded,
	}
}

// Advance moves the song one step forward. Skipping a state or moving
// backwards returns ErrInvalidTransition.
func (s *Song) Advance(to SongState) error {
	if next, ok := songTransitions[s.State]; !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	return nil
}

func (s *Song) Record() IndexRecord {
	return IndexRecord{
		ObjectKey:        s.Key,
		Bucket:           s.Bucket,
		CreatedTimestamp: s.CreatedAt.Format(IndexTimestampLayout),
		Labels:           s.Labels,
	}
}

// IndexRecord is the search index projection of a song, keyed by ObjectKey.
type IndexRecord struct {
	ObjectKey        string   `json:"objectKey" bson:"_id"`
	Bucket           string   `json:"bucket" bson:"bucket"`
	CreatedTimestamp string   `json:"createdTimestamp" bson:"created_timestamp"`
	Labels           []string `json:"labels" bson:"labels"`
}

// LabelList returns the record's labels normalized. Documents indexed with
// the labels as one comma separated value are split.
func (r IndexRecord) LabelList() []string {
	return NormalizeLabels(strings.Join(r.Labels, ","))
}

// SongResult is a playable search hit.
type SongResult struct {
	URL        string   `json:"url"`
	SearchTerm string   `json:"search_term"`
	Labels     []string `json:"labels"`
}

// NormalizeLabels splits raw on commas, trims and lower-cases every label,
// and drops empty and repeated labels while keeping the first occurrence order.
func NormalizeLabels(raw string) []string {
	labels := make([]string, 0)
	if strings.TrimSpace(raw) == "" {
		return labels
	}

	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		label := strings.ToLower(strings.TrimSpace(part))
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	return labels
}

type QueryMode string

const (
	QueryExact QueryMode = "exact"
	QueryFuzzy QueryMode = "fuzzy"
)

// Query is a bounded lookup against the search index.
type Query struct {
	Mode QueryMode
	Term string
	Size int
}

type SearchIndex interface {
	Upsert(ctx context.Context, id string, record IndexRecord) error
	Get(ctx context.Context, id string) (IndexRecord, error)
	Query(ctx context.Context, q Query) ([]IndexRecord, error)
}

// ObjectMeta is what the object store reports for a single key.
type ObjectMeta struct {
	Key          string
	LastModified time.Time
	Metadata     map[string]string
}

// Labels returns the raw labels metadata value. Metadata keys are matched
// case-insensitively since S3 canonicalises them as HTTP headers.
func (m ObjectMeta) Labels() string {
	for k, v := range m.Metadata {
		if strings.EqualFold(k, LabelsMetadataKey) {
			return v
		}
	}
	return ""
}

type ObjectStore interface {
	List(ctx context.Context, bucket string) ([]string, error)
	Head(ctx context.Context, bucket, key string) (ObjectMeta, error)
	PresignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// UploadNotification identifies one newly stored object. It carries no
// metadata; the indexer reads that from the store.
type UploadNotification struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

package searchindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
)

type OpenSearch struct {
	client *opensearch.Client
	index  string
}

func NewOpenSearch(cfg configs.SearchConfig) (*OpenSearch, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &OpenSearch{client: client, index: cfg.Index}, nil
}

type getResponse struct {
	Found  bool               `json:"found"`
	Source domain.IndexRecord `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string             `json:"_id"`
			Source domain.IndexRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Upsert replaces the whole document stored under id.
func (o *OpenSearch) Upsert(ctx context.Context, id string, record domain.IndexRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}

	req := opensearchapi.IndexRequest{
		Index:      o.index,
		DocumentID: documentID(id),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index %s: %s", id, responseError(res))
	}

	return nil
}

func (o *OpenSearch) Get(ctx context.Context, id string) (domain.IndexRecord, error) {
	req := opensearchapi.GetRequest{
		Index:      o.index,
		DocumentID: documentID(id),
	}

	res, err := req.Do(ctx, o.client)
	if err != nil {
		return domain.IndexRecord{}, fmt.Errorf("failed to get %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return domain.IndexRecord{}, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	if res.IsError() {
		return domain.IndexRecord{}, fmt.Errorf("failed to get %s: %s", id, responseError(res))
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return domain.IndexRecord{}, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	if !doc.Found {
		return domain.IndexRecord{}, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}

	return doc.Source, nil
}

// Query returns hits in the index's relevance order.
func (o *OpenSearch) Query(ctx context.Context, q domain.Query) ([]domain.IndexRecord, error) {
	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{o.index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, o.client)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", o.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to search %s: %s", o.index, responseError(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	records := make([]domain.IndexRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		record := hit.Source
		if record.ObjectKey == "" {
			record.ObjectKey = hit.ID
		}
		records = append(records, record)
	}

	return records, nil
}

// documentID escapes an object key for use as a single path segment. The
// client joins the id into the request path verbatim.
func documentID(key string) string {
	return url.PathEscape(key)
}

func responseError(res *opensearchapi.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Sprintf("status %d: %s", res.StatusCode, bytes.TrimSpace(raw))
}

// Ping reports whether the cluster answers.
func (o *OpenSearch) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch ping returned %s", res.Status())
	}
	return nil
}

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"go.uber.org/zap"
)

// Document is one indexed web result
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Body    string `json:"body,omitempty"`
}

// ESProvider serves results from an Elasticsearch index of web documents
type ESProvider struct {
	es    *elasticsearch.Client
	index string
}

// NewESProvider creates a client for url. Requests are traced.
func NewESProvider(url, index string, transport http.RoundTripper) (*ESProvider, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: telemetry.NewInstrumentedTransport("elasticsearch", transport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ESProvider{es: es, index: index}, nil
}

// Ping checks connectivity
func (p *ESProvider) Ping(ctx context.Context) error {
	res, err := p.es.Info(p.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("Elasticsearch returned error status: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the documents index if it does not exist
func (p *ESProvider) EnsureIndex(ctx context.Context) error {
	res, err := p.es.Indices.Exists([]string{p.index}, p.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":      map[string]interface{}{"type": "keyword"},
				"url":     map[string]interface{}{"type": "keyword"},
				"title":   map[string]interface{}{"type": "text"},
				"snippet": map[string]interface{}{"type": "text"},
				"body":    map[string]interface{}{"type": "text"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = p.es.Indices.Create(p.index,
		p.es.Indices.Create.WithBody(bytes.NewReader(body)),
		p.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("creating index", res.Status(), res.Body)
	}

	logger.Log.Info("Search index created", zap.String("index", p.index))
	return nil
}

// IndexDocument adds or replaces a document
func (p *ESProvider) IndexDocument(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := p.es.Index(p.index, bytes.NewReader(body),
		p.es.Index.WithDocumentID(doc.ID),
		p.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("indexing document", res.Status(), res.Body)
	}
	return nil
}

// Search implements Provider with a multi_match over title, snippet and body.
func (p *ESProvider) Search(ctx context.Context, query string, opts Options) (*Results, error) {
	opts = opts.Normalize()

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^3", "snippet^2", "body"},
			},
		},
		"from": opts.Offset,
		"size": opts.Limit,
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := p.es.Search(
		p.es.Search.WithContext(ctx),
		p.es.Search.WithIndex(p.index),
		p.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("searching", res.Status(), res.Body)
	}

	var searchResp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string   `json:"_id"`
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := &Results{Query: query, Total: searchResp.Hits.Total.Value, Results: []Result{}}
	for i, hit := range searchResp.Hits.Hits {
		out.Results = append(out.Results, Result{
			Rank:    opts.Offset + i + 1,
			Title:   hit.Source.Title,
			URL:     hit.Source.URL,
			Snippet: hit.Source.Snippet,
			Score:   hit.Score,
		})
	}
	return out, nil
}

func responseError(action, status string, body io.Reader) error {
	var errResp map[string]interface{}
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, status)
	}
	return fmt.Errorf("error %s: [%s] %v", action, status, errResp["error"])
}

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/nextolk/backend/internal/telemetry"
)

// Index names
const (
	IndexVideos   = "videos"
	IndexProducts = "products"
)

// Client wraps the Elasticsearch client with the nextolk indexes
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates an Elasticsearch client whose requests are traced
func NewClient(url string) (*Client, error) {
	return newClient(url, telemetry.InstrumentedTransport("elasticsearch", nil))
}

func newClient(url string, transport http.RoundTripper) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping verifies the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: [%s]", res.Status())
	}
	return nil
}

// InitializeIndices creates the indexes with their mappings when missing
func (c *Client) InitializeIndices(ctx context.Context) error {
	if err := c.createIndex(ctx, IndexVideos, videosMapping); err != nil {
		return fmt.Errorf("failed to create videos index: %w", err)
	}
	if err := c.createIndex(ctx, IndexProducts, productsMapping); err != nil {
		return fmt.Errorf("failed to create products index: %w", err)
	}
	return nil
}

var videosMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":       map[string]interface{}{"type": "keyword"},
			"user_id":  map[string]interface{}{"type": "keyword"},
			"username": map[string]interface{}{"type": "keyword"},
			"caption": map[string]interface{}{
				"type":     "text",
				"analyzer": "standard",
			},
			"hashtags":       map[string]interface{}{"type": "keyword"},
			"audio_name":     map[string]interface{}{"type": "text"},
			"likes_count":    map[string]interface{}{"type": "integer"},
			"comments_count": map[string]interface{}{"type": "integer"},
			"created_at":     map[string]interface{}{"type": "date"},
		},
	},
}

var productsMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":              map[string]interface{}{"type": "keyword"},
			"seller_id":       map[string]interface{}{"type": "keyword"},
			"seller_username": map[string]interface{}{"type": "keyword"},
			"name": map[string]interface{}{
				"type":     "text",
				"analyzer": "standard",
				"fields": map[string]interface{}{
					"keyword": map[string]interface{}{"type": "keyword"},
				},
			},
			"description":   map[string]interface{}{"type": "text"},
			"category_name": map[string]interface{}{"type": "keyword"},
			"price":         map[string]interface{}{"type": "scaled_float", "scaling_factor": 100},
			"is_available":  map[string]interface{}{"type": "boolean"},
			"created_at":    map[string]interface{}{"type": "date"},
		},
	},
}

func (c *Client) createIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(indexName,
		c.es.Indices.Create.WithBody(bytes.NewReader(mappingJSON)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	return responseError(res, "creating index")
}

// IndexDocument upserts doc under id in index
func (c *Client) IndexDocument(ctx context.Context, index string, id uint, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", index, err)
	}

	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(strconv.FormatUint(uint64(id), 10)),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s document: %w", index, err)
	}
	defer res.Body.Close()
	return responseError(res, "indexing document")
}

// DeleteDocument removes id from index. A missing document is not an error.
func (c *Client) DeleteDocument(ctx context.Context, index string, id uint) error {
	res, err := c.es.Delete(index, strconv.FormatUint(uint64(id), 10),
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s document: %w", index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "deleting document")
}

// SearchIDs runs a relevance query against index and returns matching
// document IDs in rank order along with the total hit count.
func (c *Client) SearchIDs(ctx context.Context, index, query string, limit, offset int) ([]uint, int64, error) {
	body, err := json.Marshal(buildQuery(index, query, limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res, "searching"); err != nil {
		return nil, 0, err
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uint, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, parsed.Hits.Total.Value, nil
}

// buildQuery scores text relevance and boosts engagement for videos
func buildQuery(index, query string, limit, offset int) map[string]interface{} {
	var match map[string]interface{}
	if query == "" {
		match = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		fields := []string{"caption^3", "hashtags^2", "username^2", "audio_name"}
		if index == IndexProducts {
			fields = []string{"name^3", "description", "category_name^2", "seller_username"}
		}
		match = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    fields,
				"fuzziness": "AUTO",
			},
		}
	}

	var q map[string]interface{}
	if index == IndexVideos {
		q = map[string]interface{}{
			"function_score": map[string]interface{}{
				"query": match,
				"functions": []map[string]interface{}{
					{
						"field_value_factor": map[string]interface{}{
							"field":    "likes_count",
							"factor":   2.0,
							"modifier": "log1p",
							"missing":  0,
						},
					},
					{
						"field_value_factor": map[string]interface{}{
							"field":    "comments_count",
							"factor":   1.0,
							"modifier": "log1p",
							"missing":  0,
						},
					},
				},
				"score_mode": "sum",
				"boost_mode": "sum",
			},
		}
	} else {
		q = map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   match,
				"filter": map[string]interface{}{"term": map[string]interface{}{"is_available": true}},
			},
		}
	}

	return map[string]interface{}{
		"query":   q,
		"from":    offset,
		"size":    limit,
		"_source": false,
	}
}

func responseError(res *esapi.Response, action string) error {
	if !res.IsError() {
		return nil
	}
	var errResp map[string]interface{}
	data, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(data, &errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}

// Package search keeps an Elasticsearch index of user read models.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/user-service/internal/application"
)

const (
	defaultSize = 10
	maxSize     = 50
	reqTimeout  = 3 * time.Second
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "long"},
      "firstName":      {"type": "text"},
      "lastName":       {"type": "text"},
      "email":          {"type": "keyword", "fields": {"text": {"type": "text"}}},
      "emailConfirmed": {"type": "boolean"},
      "role":           {"type": "keyword"}
    }
  }
}`

// UserIndex mirrors user writes into an index and answers free-text queries.
type UserIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *UserIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.ES)
	if err != nil {
		return fmt.Errorf("es index exists: %w", err)
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: x.Index, Body: strings.NewReader(indexMapping)}.Do(c, x.ES)
	if err != nil {
		return fmt.Errorf("es create index: %w", err)
	}
	return checkResponse("create index", res)
}

// Publish indexes the user carried by ev, or removes it for deletions.
func (x *UserIndex) Publish(ctx context.Context, ev application.Event) error {
	c, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	docID := strconv.FormatInt(ev.UserID, 10)
	if ev.Type == application.EventUserDeleted {
		res, err := esapi.DeleteRequest{Index: x.Index, DocumentID: docID}.Do(c, x.ES)
		if err != nil {
			return fmt.Errorf("es delete: %w", err)
		}
		if res.StatusCode == 404 {
			_ = res.Body.Close()
			return nil
		}
		return checkResponse("delete", res)
	}
	if ev.User == nil {
		return nil
	}

	b, err := json.Marshal(ev.User)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: docID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, x.ES)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	return checkResponse("index", res)
}

// Search performs a multi_match query on email and names.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]application.UserDTO, error) {
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email.text^2", "firstName", "lastName"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source application.UserDTO `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]application.UserDTO, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func checkResponse(op string, res *esapi.Response) error {
	defer func() { _ = res.Body.Close() }()
	if !res.IsError() {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("es %s: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}

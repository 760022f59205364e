// Package search mirrors accounts into Elasticsearch for the admin account search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-auth-core/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// accountDoc is the indexed shape. It never carries the password hash.
type accountDoc struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	IsAdmin        bool      `json:"is_admin"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var indexMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "username":        {"type": "keyword"},
      "email":           {"type": "keyword"},
      "is_admin":        {"type": "boolean"},
      "profile_picture": {"type": "keyword", "index": false},
      "created_at":      {"type": "date"},
      "updated_at":      {"type": "date"}
    }
  }
}`

type AccountIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewAccountIndex(es *elasticsearch.Client, index string) *AccountIndex {
	return &AccountIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *AccountIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(c, x.es)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: strings.NewReader(indexMapping)}.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", x.index, res.Status())
	}
	return nil
}

func toDoc(a *entity.Account) accountDoc {
	return accountDoc{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		IsAdmin:        a.IsAdmin,
		ProfilePicture: a.ProfilePicture,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// Index writes one account and waits for the next refresh, so a search right after
// signup already finds it.
func (x *AccountIndex) Index(ctx context.Context, a *entity.Account) error {
	b, err := json.Marshal(toDoc(a))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: a.ID, Body: bytes.NewReader(b), Refresh: "wait_for"}
	_, err = x.do(ctx, req)
	return err
}

// IndexAll writes accounts in one bulk request. Any rejected item fails the call.
func (x *AccountIndex) IndexAll(ctx context.Context, accounts []*entity.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range accounts {
		meta := map[string]any{"index": map[string]any{"_id": a.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(toDoc(a)); err != nil {
			return err
		}
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.BulkRequest{Index: x.index, Body: &buf, Refresh: "true"}.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("bulk %s: %s", x.index, res.Status())
	}
	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}
	if parsed.Errors {
		return fmt.Errorf("bulk %s: some documents were rejected", x.index)
	}
	return nil
}

// Remove deletes the account document. A missing document is not an error.
func (x *AccountIndex) Remove(ctx context.Context, id string) error {
	status, err := x.do(ctx, esapi.DeleteRequest{Index: x.index, DocumentID: id})
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

// Search returns accounts whose username or email contains q (case-insensitive), newest first.
func (x *AccountIndex) Search(ctx context.Context, q string, size int) ([]*entity.Account, error) {
	if size <= 0 || size > 100 {
		size = 50
	}
	query := map[string]any{
		"size": size,
		"sort": []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
	}
	if q = strings.TrimSpace(q); q != "" {
		pattern := "*" + escapeWildcard(q) + "*"
		query["query"] = map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"wildcard": map[string]any{"username": map[string]any{"value": pattern, "case_insensitive": true}}},
					map[string]any{"wildcard": map[string]any{"email": map[string]any{"value": pattern, "case_insensitive": true}}},
				},
				"minimum_should_match": 1,
			},
		}
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(x.es.Search.WithContext(c), x.es.Search.WithIndex(x.index), x.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", x.index, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source accountDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]*entity.Account, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		d := h.Source
		out = append(out, &entity.Account{
			ID:             d.ID,
			Username:       d.Username,
			Email:          d.Email,
			IsAdmin:        d.IsAdmin,
			ProfilePicture: d.ProfilePicture,
			CreatedAt:      d.CreatedAt,
			UpdatedAt:      d.UpdatedAt,
		})
	}
	return out, nil
}

type esRequest interface {
	Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error)
}

func (x *AccountIndex) do(ctx context.Context, req esRequest) (int, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return res.StatusCode, fmt.Errorf("elasticsearch: %s", res.Status())
	}
	return res.StatusCode, nil
}

func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}

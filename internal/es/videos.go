package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/Skotchmaster/deen_api/internal/models"
)

// VideoIndex mirrors video rows into an Elasticsearch index and runs full-text
// queries against it.
type VideoIndex struct {
	Client *elasticsearch.Client
	Index  string
}

func (x *VideoIndex) IndexVideo(ctx context.Context, v *models.Video) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	res, err := x.Client.Index(x.Index, bytes.NewReader(body),
		x.Client.Index.WithContext(ctx),
		x.Client.Index.WithDocumentID(v.ID),
	)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	return responseErr("es index", res, false)
}

// DeleteVideo treats a missing document as already deleted.
func (x *VideoIndex) DeleteVideo(ctx context.Context, id string) error {
	res, err := x.Client.Delete(x.Index, id, x.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	return responseErr("es delete", res, true)
}

func (x *VideoIndex) SearchVideos(ctx context.Context, query string, from, size int) (int64, []models.Video, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "category"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es search: %w", err)
	}

	res, err := x.Client.Search(
		x.Client.Search.WithContext(ctx),
		x.Client.Search.WithIndex(x.Index),
		x.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Video `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es search: decode: %w", err)
	}

	videos := make([]models.Video, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		videos[i] = hit.Source
	}
	return r.Hits.Total.Value, videos, nil
}

func responseErr(op string, res *esapi.Response, allowNotFound bool) error {
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	if allowNotFound && res.StatusCode == http.StatusNotFound {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), msg)
}

package es

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
)

type Config struct {
	URL       string
	User      string
	Password  string
	Transport http.RoundTripper
}

// NewClient connects and checks the cluster answers Info before returning.
func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	slog.Info("es_connect", "url", cfg.URL, "user", cfg.User)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("es client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("es info: %s: %s", res.Status(), body)
	}

	return client, nil
}

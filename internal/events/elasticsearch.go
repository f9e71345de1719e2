package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const eventMapping = `{
	"mappings": {
		"properties": {
			"type":   { "type": "keyword" },
			"kind":   { "type": "keyword" },
			"gameId": { "type": "keyword" },
			"data":   { "type": "object", "enabled": false },
			"at":     { "type": "date" }
		}
	}
}`

// Indexer archives every event as a document in Elasticsearch
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

// NewIndexer creates the client for url. It does not contact the cluster.
func NewIndexer(url, index string) (*Indexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	return &Indexer{client: client, index: index}, nil
}

// EnsureIndex creates the event index when it does not exist yet
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if event index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode != 404 {
		return nil
	}

	req := esapi.IndicesCreateRequest{
		Index: i.index,
		Body:  bytes.NewReader([]byte(eventMapping)),
	}

	res, err = req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("error creating event index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating event index: %s", res.String())
	}

	return nil
}

// Publish implements Notifier
func (i *Indexer) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: event.GameID + "-" + strconv.FormatInt(event.At.UnixNano(), 10),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("error indexing event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing event: %s", res.String())
	}

	return nil
}

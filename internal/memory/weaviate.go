package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/ppiankov/verity/internal/model"
)

// WeaviateConfig configures a WeaviateStore
type WeaviateConfig struct {
	Host       string
	Scheme     string
	Class      string
	Vectorizer string
	APIKey     string
}

// WeaviateStore finds verifications by vector similarity. Weaviate's
// certainty is used as the similarity.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
	vec    string
}

// NewWeaviateStore creates a client for cfg. It does not contact the server.
func NewWeaviateStore(cfg WeaviateConfig) (*WeaviateStore, error) {
	if cfg.Host == "" {
		return nil, errors.New("weaviate host is required")
	}
	if cfg.Class == "" {
		cfg.Class = "Verification"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateStore{client: client, class: cfg.Class, vec: cfg.Vectorizer}, nil
}

// Schema returns the class definition used for verification records
func (s *WeaviateStore) Schema() *models.Class {
	vectorizer := s.vec
	if vectorizer == "" {
		vectorizer = "none"
	}
	return &models.Class{
		Class:       s.class,
		Description: "Verification results of reasoning steps",
		Vectorizer:  vectorizer,
		Properties: []*models.Property{
			{Name: "recordId", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}, Description: "The verified text"},
			{Name: "fingerprint", DataType: []string{"text"}},
			{Name: "status", DataType: []string{"text"}},
			{Name: "confidence", DataType: []string{"number"}},
			{Name: "sources", DataType: []string{"text[]"}},
			{Name: "sessionId", DataType: []string{"text"}},
			{Name: "createdAt", DataType: []string{"date"}},
		},
	}
}

// EnsureSchema creates the class when it does not exist
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx); err == nil {
		return nil
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.Schema()).Do(ctx); err != nil {
		return fmt.Errorf("create %s schema: %w", s.class, err)
	}
	return nil
}

// AddVerification stores a new object and returns its id
func (s *WeaviateStore) AddVerification(ctx context.Context, text string, status model.Status, confidence float64, sources []string, sessionID string) (string, error) {
	rec := NewRecord(text, status, confidence, sources, sessionID)
	_, err := s.client.Data().Creator().
		WithClassName(s.class).
		WithID(rec.ID).
		WithProperties(map[string]interface{}{
			"recordId":    rec.ID,
			"text":        rec.Text,
			"fingerprint": rec.Fingerprint,
			"status":      string(rec.Status),
			"confidence":  rec.Confidence,
			"sources":     rec.Sources,
			"sessionId":   rec.SessionID,
			"createdAt":   rec.CreatedAt.Format(time.RFC3339Nano),
		}).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("create verification object: %w", err)
	}
	return rec.ID, nil
}

func (s *WeaviateStore) fields() []graphql.Field {
	return []graphql.Field{
		{Name: "recordId"},
		{Name: "text"},
		{Name: "fingerprint"},
		{Name: "status"},
		{Name: "confidence"},
		{Name: "sources"},
		{Name: "sessionId"},
		{Name: "createdAt"},
		{Name: "_additional { certainty }"},
	}
}

// FindVerification runs a nearText query bounded by threshold as certainty
func (s *WeaviateStore) FindVerification(ctx context.Context, text, sessionID string, threshold float64) (*Record, error) {
	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{text}).
		WithCertainty(float32(threshold))

	query := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(s.fields()...).
		WithNearText(nearText).
		WithLimit(1)
	if sessionID != "" {
		query = query.WithWhere(filters.Where().
			WithPath([]string{"sessionId"}).
			WithOperator(filters.Equal).
			WithValueString(sessionID))
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("similarity search: %s", resp.Errors[0].Message)
	}

	records := parseRecords(resp, s.class)
	if len(records) == 0 || records[0].Similarity < threshold {
		return nil, nil
	}
	return &records[0], nil
}

// Get looks a record up by its id
func (s *WeaviateStore) Get(ctx context.Context, id string) (*Record, error) {
	resp, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(s.fields()...).
		WithWhere(filters.Where().
			WithPath([]string{"recordId"}).
			WithOperator(filters.Equal).
			WithValueString(id)).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	records := parseRecords(resp, s.class)
	if len(records) == 0 {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &records[0], nil
}

// Close is a no-op; the client holds no connection
func (s *WeaviateStore) Close() error {
	return nil
}

// parseRecords decodes a GraphQL Get response, skipping malformed objects
func parseRecords(resp *models.GraphQLResponse, class string) []Record {
	if resp == nil {
		return nil
	}
	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := get[class].([]interface{})
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		rec := Record{
			ID:          stringField(m, "recordId"),
			Text:        stringField(m, "text"),
			Fingerprint: stringField(m, "fingerprint"),
			Status:      model.Status(stringField(m, "status")),
			SessionID:   stringField(m, "sessionId"),
		}
		if c, ok := m["confidence"].(float64); ok {
			rec.Confidence = c
		}
		if list, ok := m["sources"].([]interface{}); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					rec.Sources = append(rec.Sources, s)
				}
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, stringField(m, "createdAt")); err == nil {
			rec.CreatedAt = t
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				rec.Similarity = c
			}
		}
		records = append(records, rec)
	}
	return records
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

package typesense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/roadsideassist/pkg/config"
	"github.com/zatekoja/roadsideassist/pkg/retry"
)

const (
	PartnersCollection = "partners"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Test connection with retry
	retryConfig := retry.DefaultConfig()
	err := retry.Do(
		context.Background(),
		retryConfig,
		"Typesense",
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection attempt failed")
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Msg("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// PartnersSchema is the collection schema for the partner geo index.
// The location field is a Typesense geopoint stored as [latitude, longitude].
func PartnersSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: PartnersCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "business_name", Type: "string"},
			{Name: "location", Type: "geopoint"},
			{Name: "service_categories", Type: "string[]", Facet: pointer.True()},
			{Name: "emergency_available", Type: "bool", Facet: pointer.True()},
			{Name: "approval_status", Type: "string", Facet: pointer.True()},
			{Name: "is_active", Type: "bool"},
			{Name: "rating", Type: "float"},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("updated_at"),
	}
}

// InitSchema ensures the partners collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == PartnersCollection {
			log.Debug().Str("collection", PartnersCollection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, PartnersSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", PartnersCollection).Msg("Created Typesense collection")
	return nil
}

// DropPartners deletes the partners collection. A missing collection is not
// an error.
func (c *Client) DropPartners(ctx context.Context) error {
	_, err := c.client.Collection(PartnersCollection).Delete(ctx)
	if err != nil && !strings.Contains(err.Error(), "404") {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Ping checks that the Typesense server reports itself healthy
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.Health(ctx, 2*time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("typesense is not healthy")
	}
	return nil
}

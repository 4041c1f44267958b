// internal/common/database/firestore.go
package database

import (
	"context"
	"fmt"

	"visaflow/internal/common/config"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreClient wraps the Firestore client
type FirestoreClient struct {
	Client *firestore.Client
}

// NewFirestore creates a new Firestore client
func NewFirestore(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreClient, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreClient{Client: client}, nil
}

// Close closes the Firestore connection
func (c *FirestoreClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// GetClient returns the underlying *firestore.Client for compatibility
func (c *FirestoreClient) GetClient() *firestore.Client {
	return c.Client
}

package docstore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/noah-isme/mentor-portal-api/pkg/config"
)

// NewFirestore returns a Firestore client for the configured project.
func NewFirestore(ctx context.Context, cfg config.StoreConfig) (*firestore.Client, error) {
	if cfg.FirestoreProjectID == "" {
		return nil, errors.New("FIRESTORE_PROJECT_ID is required for the firestore store driver")
	}

	var opts []option.ClientOption
	if cfg.FirestoreCredsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredsFile))
	}

	return firestore.NewClient(ctx, cfg.FirestoreProjectID, opts...)
}

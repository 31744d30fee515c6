// Package store persists finished receipt records into the document store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/google/uuid"

	"github.com/facturave/receipt-ingest/internal/normalize"
)

type Config struct {
	Endpoint  string
	Key       string
	Database  string
	Container string
}

// Record carries everything needed to assemble one stored document.
type Record struct {
	UserID     string
	Username   *string // nil when the lookup failed or found no row
	Directorio string
	BlobURL    string
	Receipt    *normalize.Receipt
}

// document is the flat JSON shape written to the container. The embedded
// receipt fields sit at the top level next to the identifiers, and
// id_usuario duplicates userId for consumers of the historical schema.
type document struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	IDUsuario  string  `json:"id_usuario"`
	Username   *string `json:"username"`
	Directorio string  `json:"directorio"`
	BlobURL    string  `json:"blobURL"`
	*normalize.Receipt
}

// Container writes receipt documents. Documents are partitioned by userId.
type Container struct {
	container *azcosmos.ContainerClient
	logger    *slog.Logger
}

func NewContainer(cfg Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cred, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("cosmos credential: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}
	container, err := client.NewContainer(cfg.Database, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("cosmos container: %w", err)
	}
	return &Container{container: container, logger: logger}, nil
}

// Save generates a fresh document id, assembles the flat record, and
// performs a single insert. There is no upsert and no retry; the store
// accepts or rejects the document atomically.
func (c *Container) Save(ctx context.Context, rec Record) (string, error) {
	id := uuid.New().String()
	doc := document{
		ID:         id,
		UserID:     rec.UserID,
		IDUsuario:  rec.UserID,
		Username:   rec.Username,
		Directorio: rec.Directorio,
		BlobURL:    rec.BlobURL,
		Receipt:    rec.Receipt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	pk := azcosmos.NewPartitionKeyString(rec.UserID)
	if _, err := c.container.CreateItem(ctx, pk, body, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			c.logger.Error("store.create_item_failed",
				"user_id", rec.UserID, "status", respErr.StatusCode, "error", err)
		} else {
			c.logger.Error("store.create_item_failed", "user_id", rec.UserID, "error", err)
		}
		return "", fmt.Errorf("create item: %w", err)
	}

	c.logger.Info("store.document_saved", "document_id", id, "user_id", rec.UserID)
	return id, nil
}

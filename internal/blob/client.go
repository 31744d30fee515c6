// Package blob downloads uploaded receipt content from blob storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type Config struct {
	AccountURL string // e.g. https://myaccount.blob.core.windows.net
	AccountKey string
}

type Client struct {
	client *azblob.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	account, err := accountName(cfg.AccountURL)
	if err != nil {
		return nil, err
	}
	cred, err := azblob.NewSharedKeyCredential(account, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("blob credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(cfg.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("blob client: %w", err)
	}
	return &Client{client: client, logger: logger}, nil
}

// Fetch downloads one blob in full.
func (c *Client) Fetch(ctx context.Context, container, blobPath string) ([]byte, error) {
	start := time.Now()
	resp, err := c.client.DownloadStream(ctx, container, blobPath, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", container, blobPath, err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("blob.body_close_error", "error", err)
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", container, blobPath, err)
	}
	c.logger.Info("blob.fetched",
		"container", container,
		"blob", blobPath,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// accountName derives the storage account name from the service URL host,
// e.g. https://myaccount.blob.core.windows.net -> myaccount.
func accountName(accountURL string) (string, error) {
	u, err := url.Parse(accountURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid storage account URL %q", accountURL)
	}
	name, _, _ := strings.Cut(u.Host, ".")
	if name == "" {
		return "", fmt.Errorf("invalid storage account URL %q", accountURL)
	}
	return name, nil
}

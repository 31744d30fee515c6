package pipeline

import (
	"fmt"
	"strings"

	"github.com/facturave/receipt-ingest/internal/common"
)

// placeholderSuffix marks sentinel files that keep otherwise-empty upload
// directories present; they carry no content worth processing.
const placeholderSuffix = "/.placeholder"

// IsPlaceholder reports whether a blob path names a directory placeholder.
func IsPlaceholder(path string) bool {
	return strings.HasSuffix(path, placeholderSuffix)
}

// BlobPath is a parsed upload path of the form
// {container}/{userId}/{randomSubdirectory}/{filename}.
type BlobPath struct {
	Container string
	UserID    string
	Directory string
	Filename  string
}

// Blob returns the path of the blob relative to its container.
func (p BlobPath) Blob() string {
	return p.UserID + "/" + p.Directory + "/" + p.Filename
}

// ParseBlobPath splits an upload path into its identifying segments. Paths
// with fewer than four segments cannot identify an owner and are rejected.
func ParseBlobPath(path string) (BlobPath, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return BlobPath{}, fmt.Errorf("%w: expected container/user/dir/name, got %q", common.ErrPathParse, path)
	}
	return BlobPath{
		Container: parts[0],
		UserID:    parts[1],
		Directory: parts[2],
		Filename:  strings.Join(parts[3:], "/"),
	}, nil
}

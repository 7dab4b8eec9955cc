package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix is the folder every space image is stored under
const KeyPrefix = "spaces/"

// ObjectStorage is the blob store gateway
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete is only used to undo an upload
	Delete(ctx context.Context, key string) error
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds "spaces/<unix-millis>_<sanitized filename>".
// A filename with nothing usable left gets a random name.
func ObjectKey(filename string, now time.Time) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = uuid.NewString()
	}
	return fmt.Sprintf("%s%d_%s", KeyPrefix, now.UnixMilli(), name)
}

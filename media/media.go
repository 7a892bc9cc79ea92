// Package media stores uploaded videos and returns the URL they are served from.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("media: invalid object key")

// Storage writes an object and returns its public URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// ObjectKey builds the key a user's upload is stored under:
// <user>/<uuid>-<slugified name><ext>.
func ObjectKey(userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "video"
	}
	user := Slugify(userID)
	if user == "" {
		user = "anonymous"
	}
	return path.Join(user, uuid.NewString()+"-"+base+ext)
}

// Slugify converts a name to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}

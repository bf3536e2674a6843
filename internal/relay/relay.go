// Package relay turns a source attachment reference into a destination-ready
// upload: download into scratch storage, hand the local file to the sender,
// release the scratch space afterwards.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// ErrUnsupportedKind indicates an attachment kind with no matching upload
// call. The message is forwarded as text only; this is never fatal.
var ErrUnsupportedKind = errors.New("relay: unsupported attachment kind")

// Downloader is the transport capability the relay consumes.
type Downloader interface {
	Download(ctx context.Context, fileID, destPath string) (int64, error)
}

// Upload is a local, destination-ready attachment handle. It is transient:
// valid until its release function runs.
type Upload struct {
	Path     string
	FileName string
	MIMEType string
	Kind     message.Kind
	Size     int64
}

// Relay downloads attachments into per-message scratch directories under a
// common root. Safe for concurrent use by independent pair workers.
type Relay struct {
	dl     Downloader
	dir    string
	logger *slog.Logger
}

// New creates a Relay rooted at dir, creating the directory if needed.
func New(dl Downloader, dir string, logger *slog.Logger) (*Relay, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("relay: create scratch dir %s: %w", dir, err)
	}
	return &Relay{dl: dl, dir: dir, logger: logger}, nil
}

// Fetch downloads the attachment and returns the upload handle plus a
// release function. The release function must be called on every path,
// success or failure, once the upload has been consumed; on error the
// scratch space is already cleaned up and the release function is nil.
func (r *Relay) Fetch(ctx context.Context, att *message.Attachment) (Upload, func(), error) {
	if !att.Kind.Uploadable() {
		return Upload{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, att.Kind)
	}

	scratch, err := os.MkdirTemp(r.dir, "msg-")
	if err != nil {
		return Upload{}, nil, fmt.Errorf("relay: create scratch space: %w", err)
	}
	release := func() {
		if err := os.RemoveAll(scratch); err != nil {
			r.logger.Warn("scratch cleanup failed", "dir", scratch, "error", err)
		}
	}

	path := filepath.Join(scratch, att.Name())
	size, err := r.dl.Download(ctx, att.FileID, path)
	if err != nil {
		release()
		return Upload{}, nil, err
	}

	r.logger.Debug("attachment downloaded",
		"file", att.Name(),
		"bytes", size,
	)

	return Upload{
		Path:     path,
		FileName: att.Name(),
		MIMEType: att.MIMEType,
		Kind:     att.Kind,
		Size:     size,
	}, release, nil
}

// Sweep removes scratch directories untouched for longer than maxAge.
// Normal operation releases scratch space inline; the sweep only catches
// leftovers from crashes or kills. Returns the number of entries removed.
func (r *Relay) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("relay: read scratch dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "msg-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.dir, entry.Name())); err != nil {
			r.logger.Warn("scratch sweep failed", "entry", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

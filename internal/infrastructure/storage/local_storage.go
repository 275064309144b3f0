package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
)

const tempPattern = ".upload-*.tmp"

// LocalStorage persists attachment bytes on a local volume. Keys map
// to paths under the base directory; the layout mirrors
// ownerType/ownerID/ so cascade deletes can purge one directory.
type LocalStorage struct {
	basePath string
	maxBytes int64
	log      zerolog.Logger
}

// NewLocalStorage creates the storage root if needed.
func NewLocalStorage(basePath string, log zerolog.Logger) (*LocalStorage, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, fmt.Errorf("storage path must not be empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	logger := log.With().Str("component", "local-storage").Logger()
	logger.Info().Str("path", basePath).Msg("local storage initialized")

	return &LocalStorage{
		basePath: basePath,
		maxBytes: domain.MaxLimit(),
		log:      logger,
	}, nil
}

// Write streams r to key. The bytes land in a temporary file first and
// are renamed into place, so readers never observe a partial object.
// limit is a hard ceiling; exceeding it aborts the write.
func (l *LocalStorage) Write(ctx context.Context, key string, r io.Reader, limit int64) (int64, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return 0, err
	}
	if limit <= 0 || limit > l.maxBytes {
		limit = l.maxBytes
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &domain.StorageError{Op: "write", Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return 0, &domain.StorageError{Op: "write", Key: key, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if err != nil {
		cleanup()
		return 0, &domain.StorageError{Op: "write", Key: key, Err: err}
	}
	if written > limit {
		cleanup()
		return 0, &domain.ValidationError{
			Reason: domain.ReasonTooLarge,
			Detail: fmt.Sprintf("stream exceeds limit of %d bytes", limit),
		}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, &domain.StorageError{Op: "write", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, &domain.StorageError{Op: "write", Key: key, Err: err}
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return 0, &domain.StorageError{Op: "write", Key: key, Err: err}
	}

	l.log.Debug().Str("key", key).Int64("bytes", written).Msg("object written")
	return written, nil
}

// Read opens key for streaming and returns its size. Objects larger
// than the global ceiling are refused as a defensive re-check.
func (l *LocalStorage) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, 0, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, &domain.StorageError{Op: "read", Key: key, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, &domain.StorageError{Op: "read", Key: key, Err: err}
	}
	if info.Size() > l.maxBytes {
		file.Close()
		return nil, 0, &domain.StorageError{
			Op: "read", Key: key,
			Err: fmt.Errorf("object size %d exceeds ceiling %d", info.Size(), l.maxBytes),
		}
	}

	return file, info.Size(), nil
}

// Delete removes key. Removing an absent key returns false, nil.
func (l *LocalStorage) Delete(ctx context.Context, key string) (bool, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return false, err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &domain.StorageError{Op: "delete", Key: key, Err: err}
	}
	return true, nil
}

// PurgeOwner removes the whole ownerType/ownerID directory.
func (l *LocalStorage) PurgeOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) error {
	dirKey := fmt.Sprintf("%s/%s", ownerType, ownerID)
	fullPath, err := l.resolve(dirKey)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(fullPath); err != nil {
		return &domain.StorageError{Op: "purge", Key: dirKey, Err: err}
	}
	return nil
}

// Keys walks the storage root and returns every stored key in slash
// form. In-flight temporary files are skipped.
func (l *LocalStorage) Keys(ctx context.Context) ([]string, error) {
	return l.walkKeys(time.Time{})
}

// KeysOlderThan returns the keys of objects last modified before
// cutoff. The sweeper reconciles orphans through this instead of Keys
// so objects written by an upload that has not registered its row yet
// are never mistaken for orphans.
func (l *LocalStorage) KeysOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return l.walkKeys(cutoff)
}

func (l *LocalStorage) walkKeys(cutoff time.Time) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".upload-") && strings.HasSuffix(name, ".tmp") {
			return nil
		}
		if !cutoff.IsZero() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if !info.ModTime().Before(cutoff) {
				return nil
			}
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Key: "/", Err: err}
	}
	return keys, nil
}

// Health checks that the storage root is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

// resolve maps a key to an absolute path and rejects anything that
// would escape the storage root.
func (l *LocalStorage) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", &domain.StorageError{Op: "resolve", Key: key, Err: fmt.Errorf("unsafe key")}
	}
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	absBase, err := filepath.Abs(l.basePath)
	if err != nil {
		return "", &domain.StorageError{Op: "resolve", Key: key, Err: err}
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", &domain.StorageError{Op: "resolve", Key: key, Err: err}
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", &domain.StorageError{Op: "resolve", Key: key, Err: fmt.Errorf("key escapes storage root")}
	}
	return fullPath, nil
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

const (
	lockFileName   = ".bucket.lock"
	lockRetryDelay = 50 * time.Millisecond
)

// FS is a Bucket backed by a filesystem.
type FS struct {
	fs      afero.Fs
	lockDir string
}

// FSOption configures an FS bucket.
type FSOption func(*FS)

// WithLockDir serializes writers from several processes through an OS file
// lock placed in dir. It only makes sense for OS backed filesystems.
func WithLockDir(dir string) FSOption {
	return func(b *FS) {
		b.lockDir = dir
	}
}

// NewFS returns a bucket storing objects as files on fs.
func NewFS(fs afero.Fs, opts ...FSOption) *FS {
	b := &FS{fs: fs}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewLocal returns a bucket rooted at dir on the OS filesystem.
func NewLocal(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root %s: %w", dir, err)
	}
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir), WithLockDir(dir)), nil
}

// cleanKey maps a slash separated key to a file name under the bucket root.
// Keys with a ".." segment are rejected; dots inside a segment are fine.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + key)
	if k == "/" || slices.Contains(strings.Split(key, "/"), "..") {
		return "", fmt.Errorf("blob: invalid key %q", key)
	}
	return filepath.FromSlash(k), nil
}

// Put writes r to a temporary file and renames it into place so readers
// never observe a partial object.
func (b *FS) Put(ctx context.Context, key string, r io.Reader, size int64, _ string) (err error) {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	unlock, err := b.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if err := b.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("blob: create dir for %s: %w", key, err)
	}
	tmp := name + ".tmp-" + ksuid.New().String()
	f, err := b.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("blob: create %s: %w", key, err)
	}
	defer func() {
		if err != nil {
			_ = b.fs.Remove(tmp)
		}
	}()
	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("blob: sync %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("blob: close %s: %w", key, err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("blob: short write for %s: wrote %d of %d bytes", key, written, size)
	}
	if err := b.fs.Rename(tmp, name); err != nil {
		return fmt.Errorf("blob: commit %s: %w", key, err)
	}
	return nil
}

func (b *FS) Get(_ context.Context, key string) (io.ReadCloser, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := b.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("blob: open %s: %w", key, err)
	}
	return f, nil
}

func (b *FS) Stat(_ context.Context, key string) (Object, error) {
	name, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}
	info, err := b.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Object{}, fmt.Errorf("blob: stat %s: %w", key, err)
	}
	return Object{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (b *FS) lock(ctx context.Context) (func(), error) {
	if b.lockDir == "" {
		return func() {}, nil
	}
	fl := flock.New(filepath.Join(b.lockDir, lockFileName))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("blob: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("blob: lock %s not acquired", fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}

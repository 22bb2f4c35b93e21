package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/basic-cleaning/engine/core"
	"github.com/compozy/basic-cleaning/engine/infra/blob"
	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
)

const digestPrefix = "sha256:"

// Options configures a Store.
type Options struct {
	// Fs is the local filesystem holding downloads and files to upload.
	Fs            afero.Fs
	CacheDir      string
	Entity        string
	Project       string
	PollInterval  time.Duration
	UploadTimeout time.Duration
}

// Store resolves, downloads and publishes artifacts. It combines a registry
// holding version metadata with a bucket holding payloads.
type Store struct {
	registry Registry
	bucket   blob.Bucket
	opts     Options
}

// NewStore creates an artifact store.
func NewStore(registry Registry, bucket blob.Bucket, opts Options) *Store {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 5 * time.Minute
	}
	return &Store{registry: registry, bucket: bucket, opts: opts}
}

// StartRun registers a running run.
func (s *Store) StartRun(ctx context.Context, name, jobType string, config map[string]any) (*Run, error) {
	id, err := core.NewID()
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:        id,
		Name:      name,
		JobType:   jobType,
		Config:    config,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.registry.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("registering run %s: %w", name, err)
	}
	return run, nil
}

// FinishRun records the outcome of run. A nil runErr marks it finished.
func (s *Store) FinishRun(ctx context.Context, run *Run, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = RunFinished
	run.Error = ""
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	}
	if err := s.registry.FinishRun(ctx, run); err != nil {
		return fmt.Errorf("finishing run %s: %w", run.Name, err)
	}
	return nil
}

// Resolve returns the committed artifact version ref points at.
func (s *Store) Resolve(ctx context.Context, ref string) (*Artifact, error) {
	parsed, err := ParseReference(ref)
	if err != nil {
		return nil, notFound(ref, err)
	}
	if !s.inScope(parsed) {
		return nil, notFound(ref, fmt.Errorf("store serves %s", s.scope()))
	}
	a, err := s.registry.Resolve(ctx, parsed)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound(ref, nil)
		}
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	return a, nil
}

// Versions lists every version logged under name, oldest first.
func (s *Store) Versions(ctx context.Context, name string) ([]*Artifact, error) {
	return s.registry.Versions(ctx, name)
}

// Use resolves ref, downloads its file into the cache directory and records
// that run consumed it. The returned artifact's LocalFile is readable.
func (s *Store) Use(ctx context.Context, run *Run, ref string) (*Artifact, error) {
	log := logger.FromContext(ctx)
	a, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if a.File == nil {
		return nil, notFound(ref, fmt.Errorf("%s has no file", a.QualifiedName()))
	}
	local, err := s.download(ctx, a.File)
	if err != nil {
		return nil, notFound(ref, err)
	}
	a.File.LocalPath = local
	if run != nil {
		if err := s.registry.LinkArtifact(ctx, run.ID, a.ID, DirectionInput); err != nil {
			return nil, fmt.Errorf("recording use of %s: %w", a.QualifiedName(), err)
		}
	}
	log.Debug("Artifact downloaded", "artifact", a.QualifiedName(), "path", local, "size", humanize.Bytes(uint64(a.File.Size)))
	return a, nil
}

func (s *Store) download(ctx context.Context, f *File) (string, error) {
	hexDigest := strings.TrimPrefix(f.Digest, digestPrefix)
	dir := filepath.Join(s.opts.CacheDir, hexDigest)
	target := filepath.Join(dir, f.Name)
	if s.cached(target, f) {
		return target, nil
	}
	if err := s.opts.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	rc, err := s.bucket.Get(ctx, f.Key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	tmp, err := afero.TempFile(s.opts.Fs, dir, f.Name+".part-*")
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	tmpName := tmp.Name()
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.opts.Fs.Remove(tmpName)
		return "", fmt.Errorf("downloading %s: %w", f.Key, err)
	}
	if got := digestPrefix + hex.EncodeToString(h.Sum(nil)); got != f.Digest || n != f.Size {
		_ = s.opts.Fs.Remove(tmpName)
		return "", fmt.Errorf("payload %s is corrupt: digest %s size %d, want %s size %d", f.Key, got, n, f.Digest, f.Size)
	}
	if err := s.opts.Fs.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("moving download into cache: %w", err)
	}
	return target, nil
}

func (s *Store) cached(target string, f *File) bool {
	info, err := s.opts.Fs.Stat(target)
	if err != nil || info.Size() != f.Size {
		return false
	}
	digest, _, err := s.fileDigest(target)
	return err == nil && digest == f.Digest
}

// Log validates a, registers a pending version and transfers its file. The
// returned Upload must be waited on before the version becomes resolvable.
func (s *Store) Log(ctx context.Context, run *Run, a *Artifact) (*Upload, error) {
	log := logger.FromContext(ctx)
	if err := s.validate(a); err != nil {
		return nil, uploadFailed(a.Name, "validate", err)
	}
	local := a.File.LocalPath
	digest, size, err := s.fileDigest(local)
	if err != nil {
		return nil, uploadFailed(a.Name, "read", err)
	}
	mediaType, err := s.detect(local)
	if err != nil {
		return nil, uploadFailed(a.Name, "read", err)
	}
	a.File.Digest = digest
	a.File.Size = size
	a.File.MediaType = mediaType
	a.File.Key = path.Join(a.Name, strings.TrimPrefix(digest, digestPrefix), a.File.Name)
	if err := s.registry.CreatePending(ctx, a); err != nil {
		return nil, uploadFailed(a.Name, "create", err)
	}
	if err := s.put(ctx, a.File); err != nil {
		s.markFailed(ctx, a)
		return nil, uploadFailed(a.Name, "upload", err)
	}
	if run != nil {
		if err := s.registry.LinkArtifact(ctx, run.ID, a.ID, DirectionOutput); err != nil {
			s.markFailed(ctx, a)
			return nil, uploadFailed(a.Name, "link", err)
		}
	}
	log.Info("Artifact logged",
		"artifact", a.QualifiedName(),
		"size", humanize.Bytes(uint64(size)),
		"digest", digest,
	)
	return NewUpload(a, func(ctx context.Context) error {
		return s.confirm(ctx, a)
	}), nil
}

func (s *Store) validate(a *Artifact) error {
	if !ValidName(a.Name) {
		return fmt.Errorf("invalid artifact name %q", a.Name)
	}
	if strings.TrimSpace(a.Type) == "" {
		return fmt.Errorf("artifact type is required")
	}
	if a.File == nil || a.File.LocalPath == "" {
		return fmt.Errorf("artifact wraps no file")
	}
	return nil
}

func (s *Store) put(ctx context.Context, f *File) error {
	src, err := s.opts.Fs.Open(f.LocalPath)
	if err != nil {
		return err
	}
	defer src.Close()
	return s.bucket.Put(ctx, f.Key, src, f.Size, f.MediaType)
}

// confirm polls the bucket until the payload is visible with the expected
// size, then commits the version.
func (s *Store) confirm(ctx context.Context, a *Artifact) error {
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()
	backoff := retry.WithMaxDuration(s.opts.UploadTimeout, retry.NewConstant(s.opts.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		obj, err := s.bucket.Stat(ctx, a.File.Key)
		if err != nil {
			log.Debug("Waiting for artifact payload", "artifact", a.QualifiedName(), "error", err)
			return retry.RetryableError(err)
		}
		if obj.Size != a.File.Size {
			return fmt.Errorf("stored size %d does not match %d", obj.Size, a.File.Size)
		}
		return nil
	})
	if err != nil {
		s.markFailed(context.WithoutCancel(ctx), a)
		return uploadFailed(a.Name, "confirm", err)
	}
	if err := s.registry.Commit(ctx, a.ID); err != nil {
		s.markFailed(context.WithoutCancel(ctx), a)
		return uploadFailed(a.Name, "commit", err)
	}
	committed, err := s.registry.Get(ctx, a.ID)
	if err != nil {
		s.markFailed(context.WithoutCancel(ctx), a)
		return uploadFailed(a.Name, "commit", err)
	}
	a.State = committed.State
	a.Aliases = committed.Aliases
	a.CommittedAt = committed.CommittedAt
	return nil
}

func (s *Store) markFailed(ctx context.Context, a *Artifact) {
	if a.ID.IsZero() {
		return
	}
	if err := s.registry.MarkFailed(ctx, a.ID); err != nil {
		logger.FromContext(ctx).Warn("Failed to mark artifact version failed", "artifact", a.QualifiedName(), "error", err)
	}
	a.State = StateFailed
}

func (s *Store) fileDigest(name string) (string, int64, error) {
	f, err := s.opts.Fs.Open(name)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return digestPrefix + hex.EncodeToString(h.Sum(nil)), n, nil
}

func (s *Store) detect(name string) (string, error) {
	f, err := s.opts.Fs.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detecting media type: %w", err)
	}
	return mt.String(), nil
}

func (s *Store) inScope(ref Reference) bool {
	if ref.Entity != "" && s.opts.Entity != "" && ref.Entity != s.opts.Entity {
		return false
	}
	if ref.Project != "" && s.opts.Project != "" && ref.Project != s.opts.Project {
		return false
	}
	return true
}

func (s *Store) scope() string {
	switch {
	case s.opts.Entity != "" && s.opts.Project != "":
		return s.opts.Entity + "/" + s.opts.Project
	case s.opts.Project != "":
		return s.opts.Project
	default:
		return "the default project"
	}
}

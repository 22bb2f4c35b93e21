package artifact

import (
	"context"
	"sync"
)

// Upload tracks a logged artifact until the store confirms it is durable.
type Upload struct {
	artifact *Artifact
	wait     func(context.Context) error
	once     sync.Once
	err      error
}

// NewUpload wraps a logged artifact with the function confirming it.
func NewUpload(a *Artifact, wait func(context.Context) error) *Upload {
	return &Upload{artifact: a, wait: wait}
}

// Artifact returns the logged artifact. Its version is assigned; its state
// becomes committed once Wait succeeds.
func (u *Upload) Artifact() *Artifact {
	return u.artifact
}

// Wait blocks until the upload is confirmed or has failed. Later calls
// return the first outcome.
func (u *Upload) Wait(ctx context.Context) error {
	u.once.Do(func() {
		if u.wait != nil {
			u.err = u.wait(ctx)
		}
	})
	return u.err
}

package artifact

import (
	"context"
	"errors"

	"github.com/compozy/basic-cleaning/engine/core"
)

// ErrRecordNotFound is returned by registries for unknown ids, names or aliases.
var ErrRecordNotFound = errors.New("record not found")

// Registry persists artifact versions, aliases, runs and run lineage.
type Registry interface {
	// CreatePending assigns an id and the next version number for a.Name and
	// stores a in the pending state.
	CreatePending(ctx context.Context, a *Artifact) error
	// Commit marks a version committed and moves LatestAlias onto it.
	Commit(ctx context.Context, id core.ID) error
	MarkFailed(ctx context.Context, id core.ID) error
	Get(ctx context.Context, id core.ID) (*Artifact, error)
	// Resolve returns the committed version a reference points at.
	Resolve(ctx context.Context, ref Reference) (*Artifact, error)
	Versions(ctx context.Context, name string) ([]*Artifact, error)

	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, name string) (*Run, error)
	LinkArtifact(ctx context.Context, runID, artifactID core.ID, dir Direction) error
	RunArtifacts(ctx context.Context, runID core.ID, dir Direction) ([]*Artifact, error)
}

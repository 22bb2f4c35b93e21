// Package artifact models versioned, immutable file bundles and the store
// that resolves, downloads and publishes them.
package artifact

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/compozy/basic-cleaning/engine/core"
)

// State is the lifecycle state of an artifact version.
type State string

const (
	StatePending   State = "pending"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

// File is the single payload wrapped by an artifact.
type File struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	Size      int64  `json:"size"`
	Digest    string `json:"digest"`
	MediaType string `json:"media_type,omitempty"`
	// LocalPath is set on artifacts that were downloaded or are about to be
	// logged. It is never persisted.
	LocalPath string `json:"-"`
}

// Artifact is a named, typed, described bundle wrapping exactly one file.
// Version is -1 until the store assigns one.
type Artifact struct {
	ID          core.ID    `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Version     int        `json:"version"`
	State       State      `json:"state"`
	Aliases     []string   `json:"aliases,omitempty"`
	File        *File      `json:"file,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
}

// New creates an unsaved artifact record.
func New(name, typ, description string) *Artifact {
	return &Artifact{
		Name:        name,
		Type:        typ,
		Description: description,
		Version:     -1,
		State:       StatePending,
	}
}

// AddFile attaches the local file at path. An artifact holds one file.
func (a *Artifact) AddFile(path string) error {
	if a.File != nil {
		return fmt.Errorf("artifact %q already wraps %s", a.Name, a.File.Name)
	}
	if path == "" {
		return fmt.Errorf("artifact %q: empty file path", a.Name)
	}
	a.File = &File{Name: filepath.Base(path), LocalPath: path}
	return nil
}

// LocalFile returns the local path of the wrapped file.
func (a *Artifact) LocalFile() (string, error) {
	if a.File == nil || a.File.LocalPath == "" {
		return "", fmt.Errorf("artifact %q has no local file", a.Name)
	}
	return a.File.LocalPath, nil
}

// VersionTag returns v<N>, or an empty string before a version is assigned.
func (a *Artifact) VersionTag() string {
	if a.Version < 0 {
		return ""
	}
	return VersionTag(a.Version)
}

// QualifiedName returns name:v<N>.
func (a *Artifact) QualifiedName() string {
	return a.Name + ":" + a.VersionTag()
}

// RunStatus is the terminal or running state of a run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Direction tells whether a run consumed or produced an artifact.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Run is one execution of a pipeline step.
type Run struct {
	ID         core.ID        `json:"id"`
	Name       string         `json:"name"`
	JobType    string         `json:"job_type"`
	Config     map[string]any `json:"config"`
	Status     RunStatus      `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

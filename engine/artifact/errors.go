package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks failures to resolve or download an input artifact.
	ErrNotFound = errors.New("artifact not found")
	// ErrUpload marks failures to create, upload or confirm an output artifact.
	ErrUpload = errors.New("artifact upload failed")
	// ErrInvalidReference is the cause when a reference cannot be parsed.
	ErrInvalidReference = errors.New("invalid artifact reference")
	// ErrTypeMismatch is returned when a name is reused with another type.
	ErrTypeMismatch = errors.New("artifact type mismatch")
)

// NotFoundError reports that a reference could not be resolved or its
// payload could not be downloaded.
type NotFoundError struct {
	Ref   string
	Cause error
}

func (e *NotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("artifact %q not found: %v", e.Ref, e.Cause)
	}
	return fmt.Sprintf("artifact %q not found", e.Ref)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// UploadError reports that the store is unreachable or rejected an artifact.
type UploadError struct {
	Name  string
	Op    string
	Cause error
}

func (e *UploadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upload of artifact %q failed during %s: %v", e.Name, e.Op, e.Cause)
	}
	return fmt.Sprintf("upload of artifact %q failed during %s", e.Name, e.Op)
}

func (e *UploadError) Is(target error) bool {
	return target == ErrUpload
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

func notFound(ref string, cause error) error {
	return &NotFoundError{Ref: ref, Cause: cause}
}

func uploadFailed(name, op string, cause error) error {
	return &UploadError{Name: name, Op: op, Cause: cause}
}

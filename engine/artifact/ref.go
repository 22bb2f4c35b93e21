package artifact

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LatestAlias always points at the newest committed version of a name.
const LatestAlias = "latest"

var (
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	versionPattern = regexp.MustCompile(`^v(0|[1-9][0-9]*)$`)
)

// Reference identifies exactly one artifact version:
// [entity/project/]name[:version|alias]. Without a suffix the reference
// points at LatestAlias.
type Reference struct {
	Entity  string
	Project string
	Name    string
	Version int
	Alias   string
}

// ParseReference parses a fully-qualified artifact reference.
func ParseReference(s string) (Reference, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}
	ref := Reference{Version: -1}
	path, selector, hasSelector := strings.Cut(raw, ":")
	parts := strings.Split(path, "/")
	switch len(parts) {
	case 1:
		ref.Name = parts[0]
	case 2:
		ref.Project, ref.Name = parts[0], parts[1]
	case 3:
		ref.Entity, ref.Project, ref.Name = parts[0], parts[1], parts[2]
	default:
		return Reference{}, fmt.Errorf("%w: %q has too many path segments", ErrInvalidReference, s)
	}
	for _, p := range parts {
		if !namePattern.MatchString(p) {
			return Reference{}, fmt.Errorf("%w: invalid segment %q in %q", ErrInvalidReference, p, s)
		}
	}
	switch {
	case !hasSelector:
		ref.Alias = LatestAlias
	case selector == "":
		return Reference{}, fmt.Errorf("%w: empty version in %q", ErrInvalidReference, s)
	case versionPattern.MatchString(selector):
		v, err := strconv.Atoi(selector[1:])
		if err != nil {
			return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		ref.Version = v
	case namePattern.MatchString(selector):
		ref.Alias = selector
	default:
		return Reference{}, fmt.Errorf("%w: invalid alias %q in %q", ErrInvalidReference, selector, s)
	}
	return ref, nil
}

// HasVersion reports whether the reference pins an explicit version.
func (r Reference) HasVersion() bool {
	return r.Version >= 0
}

// Selector returns the version tag or alias part of the reference.
func (r Reference) Selector() string {
	if r.HasVersion() {
		return VersionTag(r.Version)
	}
	return r.Alias
}

func (r Reference) String() string {
	var b strings.Builder
	if r.Entity != "" {
		b.WriteString(r.Entity)
		b.WriteByte('/')
	}
	if r.Project != "" {
		b.WriteString(r.Project)
		b.WriteByte('/')
	}
	b.WriteString(r.Name)
	b.WriteByte(':')
	b.WriteString(r.Selector())
	return b.String()
}

// VersionTag formats a version number as v<N>.
func VersionTag(v int) string {
	return "v" + strconv.Itoa(v)
}

// ValidName reports whether name can be used as an artifact name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

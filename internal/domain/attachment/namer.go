package attachment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/taskpilot/file-api/utils/attachid"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._ -]`)
	safeSegment     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Namer derives collision-free, traversal-safe storage keys. The id
// generator is injected so tests can supply deterministic ids.
type Namer struct {
	ids attachid.Generator
}

func NewNamer(ids attachid.Generator) *Namer {
	return &Namer{ids: ids}
}

// Name produces a storage key of the form ownerType/ownerID/id.ext and
// returns the id reused as the registry identifier. Uniqueness of the
// key follows from the generator; callers never need to re-check.
func (n *Namer) Name(owner OwnerRef, originalName, ext string) (id, key string, err error) {
	if !safeSegment.MatchString(owner.ID) {
		return "", "", &ValidationError{
			Reason: ReasonInvalidName,
			Detail: fmt.Sprintf("owner id %q is not a safe path segment", owner.ID),
		}
	}
	if _, err := SanitizeName(originalName); err != nil {
		return "", "", err
	}

	id = n.ids.New()
	key = fmt.Sprintf("%s/%s/%s%s", owner.Type, owner.ID, id, ext)
	return id, key, nil
}

// SanitizeName reduces an original filename to a safe form for record
// keeping. Path separators and parent-directory sequences are stripped;
// a name that has nothing safe left is rejected.
func SanitizeName(name string) (string, error) {
	// Keep only the last path element, whatever separator was used.
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")

	if name == "" {
		return "", &ValidationError{
			Reason: ReasonInvalidName,
			Detail: "filename is empty after sanitizing",
		}
	}
	return name, nil
}

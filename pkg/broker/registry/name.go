// Package registry implements the Queues/Routers/Channels/Clients
// name-to-entity lookups, lifecycle events, and the best-effort
// configuration persistence hook.
package registry

import (
	"path/filepath"
	"strings"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// forbiddenNameChars are excluded from entity names, which are otherwise
// unique and case-insensitive.
const forbiddenNameChars = " *;"

// ValidateName checks name against the shared naming rule every registry
// enforces.
func ValidateName(name string) error {
	if name == "" {
		return errors.New(errors.CodeInvalidArgument, "name must not be empty", nil)
	}
	if strings.ContainsAny(name, forbiddenNameChars) {
		return errors.New(errors.CodeInvalidArgument, "name must not contain space, '*' or ';'", nil)
	}
	return nil
}

// key normalizes name for the case-insensitive lookup maps every registry
// below uses.
func key(name string) string {
	return strings.ToLower(name)
}

// matchFilter applies the glob semantics 's `Filter` header describes,
// reused here so registry listing operations support the same pattern.
func matchFilter(filter, name string) bool {
	if filter == "" {
		return true
	}
	ok, err := filepath.Match(filter, name)
	return err == nil && ok
}

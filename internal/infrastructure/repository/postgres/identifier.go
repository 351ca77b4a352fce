package postgres

import (
	"fmt"
	"regexp"

	"docconsole/internal/core/domain"
)

// Table names come from operator-editable metadata, so they are validated
// lexically before ever reaching query text. Values are always bound as
// parameters; only identifiers pass through this gate.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func safeIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate identifier",
			fmt.Errorf("unsafe table identifier %q", name))
	}
	return name, nil
}

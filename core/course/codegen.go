package course

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var codeRegex = regexp.MustCompile(`^[0-9a-f]{8}$`)

// GenerateCode returns a short join code: the first segment of a random UUID.
// Uniqueness is not guaranteed here; it is enforced by the Repository.
func GenerateCode() string {
	return strings.SplitN(uuid.New().String(), "-", 2)[0]
}

// IsValidCode reports whether code has the shape of a generated join code.
func IsValidCode(code string) bool {
	return codeRegex.MatchString(code)
}

package sqlxrepos

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const pqUniqueViolation = "23505"

// uniqueViolation returns the name of the unique constraint err violates, if any.
func uniqueViolation(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

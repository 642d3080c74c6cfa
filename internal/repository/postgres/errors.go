package postgres

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// isDuplicateKey reports a unique violation. gorm only translates pgx and sqlite errors, so
// the lib/pq code 23505 is checked as well.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

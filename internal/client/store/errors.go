package store

import (
	"errors"

	"github.com/pagekeep/pagekeep/internal/common"
)

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

// Maps store errors to API errors.

package handlers

import (
	"errors"

	"github.com/maruel/salesdb/internal/csvdb"
	"github.com/maruel/salesdb/internal/server/dto"
)

// storeError converts an error returned by the record store. Unknown columns
// are the caller's fault; everything else is a storage failure.
func storeError(err error) error {
	if errors.Is(err, csvdb.ErrUnknownColumn) {
		return dto.BadRequest(err.Error()).Wrap(err)
	}
	return dto.StorageError(err)
}

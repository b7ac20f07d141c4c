package sqlxrepos

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

// wrapDBError wraps a driver error with context. Postgres class 08 errors
// (connection exceptions) become shutdown errors; once the connection is
// gone there is no point serving further requests.
func wrapDBError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return core.NewShutdownError(err.Error())
	}
	return errors.Wrap(err, msg)
}

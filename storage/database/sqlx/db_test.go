package sqlxrepos

import (
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/seekmycourse/backend/core"
)

func TestWrapDBError(t *testing.T) {
	t.Run("connection failures become shutdown errors", func(t *testing.T) {
		err := wrapDBError(&pq.Error{Code: "08006"}, "querying user")
		assert.True(t, core.IsShutdown(err))
	})

	t.Run("other driver failures keep their context", func(t *testing.T) {
		err := wrapDBError(&pq.Error{Code: "23505"}, "inserting user")
		assert.False(t, core.IsShutdown(err))
		assert.Contains(t, err.Error(), "inserting user")
	})

	t.Run("plain errors keep their context", func(t *testing.T) {
		err := wrapDBError(errors.New("boom"), "querying course")
		assert.False(t, core.IsShutdown(err))
		assert.Contains(t, err.Error(), "querying course")
	})
}

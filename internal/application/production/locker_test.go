package production

import (
	"context"
	"testing"

	"github.com/erp/production/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOrderLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalOrderLocker()

	unlock, err := l.TryLock(ctx, "production-order:P1")
	require.NoError(t, err)
	assert.True(t, l.Held("production-order:P1"))

	_, err = l.TryLock(ctx, "production-order:P1")
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	other, err := l.TryLock(ctx, "production-order:P2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	assert.False(t, l.Held("production-order:P1"))

	again, err := l.TryLock(ctx, "production-order:P1")
	require.NoError(t, err)
	again()
}

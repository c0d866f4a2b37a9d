package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samarthnaikk/ychat20/internal/auth"
	"github.com/samarthnaikk/ychat20/internal/store"
)

const testSecret = "identity-service-signing-key-for-unit-checks"

func TestResolve(t *testing.T) {
	validator := auth.NewJWTValidator(testSecret)
	svc := New(validator, store.NewMemory())

	token, err := validator.Issue(42, time.Hour)
	require.NoError(t, err)

	userID, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = svc.Resolve("garbage")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	validator := auth.NewJWTValidator(testSecret)
	mem := store.NewMemory()
	mem.AddUser(7)
	svc := New(validator, mem)

	exists, err := svc.Exists(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, exists)
}

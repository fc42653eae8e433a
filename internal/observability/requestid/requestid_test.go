package requestid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", FromContext(ctx))
}

func TestEnsure(t *testing.T) {
	t.Run("keeps existing id", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		got, id := Ensure(ctx)
		assert.Equal(t, "req-1", id)
		assert.Equal(t, ctx, got)
	})

	t.Run("generates uuid", func(t *testing.T) {
		ctx, id := Ensure(context.Background())
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, FromContext(ctx))
	})
}

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxPutGetRoundTrip(t *testing.T) {
	s := NewSandbox()
	ctx := context.Background()

	key, err := s.Put(ctx, []byte("hello world"), "text/plain", "note.txt")
	require.NoError(t, err)
	assert.Contains(t, key, "note.txt")

	obj, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(obj.Data))
	assert.Equal(t, "text/plain", obj.MIME)
}

func TestSandboxGetMissingKeyErrors(t *testing.T) {
	s := NewSandbox()
	_, err := s.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestHashBytesIsDeterministic(t *testing.T) {
	a := HashBytes([]byte("same input"))
	b := HashBytes([]byte("same input"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

package helper

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	_, err = uuid.Parse(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "abc-123", RequestID("abc-123"))

	minted := RequestID("")
	_, err := uuid.Parse(minted)
	assert.NoError(t, err)

	minted = RequestID(strings.Repeat("x", maxRequestIDLen+1))
	_, err = uuid.Parse(minted)
	assert.NoError(t, err)
}

package password

import (
	"strings"
	"testing"

	"social-system/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, Verify("s3cret", hash))
	assert.False(t, Verify("wrong", hash))
	assert.False(t, Verify("s3cret", "not-a-hash"))

	_, err = Hash(strings.Repeat("a", 73))
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

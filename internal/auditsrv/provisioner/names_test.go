package provisioner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/attestra/attestra/internal/common/uuid"
)

func TestGeneratedNamesAreDeterministic(t *testing.T) {
	clientID := uuid.MustParse("e4b2f1a0-1234-4abc-9def-5678deadbeef")

	assert.Equal(t, DatabaseName(clientID), DatabaseName(clientID))
	assert.Equal(t, "aud_e4b2f1a01234", DatabaseName(clientID))
	assert.Equal(t, "aud_e4b2f1a01234", RoleName(clientID))
	assert.Equal(t, "aud-e4b2f1a01234-evidence", BucketName(clientID))
}

func TestGeneratedNamesDifferPerClient(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.NotEqual(t, DatabaseName(a), DatabaseName(b))
	assert.NotEqual(t, BucketName(a), BucketName(b))
}

func TestBucketNameSatisfiesS3Rules(t *testing.T) {
	for i := 0; i < 20; i++ {
		name := BucketName(uuid.New())
		assert.False(t, strings.Contains(name, "_"), "bucket names may not contain underscores")
		assert.Equal(t, strings.ToLower(name), name)
		assert.LessOrEqual(t, len(name), 63)
		assert.GreaterOrEqual(t, len(name), 3)
	}
}

func TestDatabaseNameIsValidIdentifier(t *testing.T) {
	name := DatabaseName(uuid.New())
	assert.LessOrEqual(t, len(name), 63)
	assert.Regexp(t, `^[a-z_][a-z0-9_]*$`, name)
}

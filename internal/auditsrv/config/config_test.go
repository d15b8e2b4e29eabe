package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
server_port = "8678"
default_request_timeout = "45s"

[db]
host = "db.internal"
port = 5432
dbname = "attestra"
user = "attestra"
password = "file-password"

[tenantdb]
host = "tenants.internal"
max_open_conns = 8

[secrets]
credential_encryption_passwd = "file-credential-passwd"

[auth]
token_signing_key = "file-signing-key"
clock_skew = "1m"
`

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, validConfig)
	require.NoError(t, LoadConfig(path))

	c := Config()
	assert.Equal(t, "8678", c.ServerPort)
	assert.Equal(t, 45*time.Second, c.GetDefaultRequestTimeoutOrDefault())
	assert.Equal(t, "db.internal", c.DB.Host)
	assert.Equal(t, "tenants.internal", c.TenantDB.Host)
	assert.Equal(t, 8, c.TenantDB.MaxOpenConns)
	assert.Equal(t, time.Minute, c.Auth.GetClockSkewOrDefault())

	// values absent from the file keep their defaults
	assert.Equal(t, 5432, c.TenantDB.Port)
	assert.Equal(t, 30*time.Minute, c.TenantDB.GetConnMaxLifetimeOrDefault())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ATTESTRA_DB_PASSWORD", "env-password")
	t.Setenv("ATTESTRA_CREDENTIAL_ENCRYPTION_PASSWD", "env-credential-passwd")
	t.Setenv("ATTESTRA_TOKEN_SIGNING_KEY", "env-signing-key")

	path := writeConfigFile(t, validConfig)
	require.NoError(t, LoadConfig(path))

	c := Config()
	assert.Equal(t, "env-password", c.DB.Password)
	assert.Equal(t, "env-credential-passwd", c.Secrets.CredentialEncryptionPasswd)
	assert.Equal(t, "env-signing-key", c.Auth.TokenSigningKey)
}

func TestLoadConfigMissingFile(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing encryption password",
			content: `
server_port = "8678"
[db]
dbname = "attestra"
user = "attestra"
`,
		},
		{
			name: "missing db name",
			content: `
server_port = "8678"
[db]
user = "attestra"
[secrets]
credential_encryption_passwd = "p"
`,
		},
		{
			name: "bad duration",
			content: `
server_port = "8678"
default_request_timeout = "soon"
[db]
dbname = "attestra"
user = "attestra"
[secrets]
credential_encryption_passwd = "p"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadConfig(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestTenantDSN(t *testing.T) {
	TestInit()
	dsn := TenantDSN("tenants.internal", 5433, "aud_1a2b3c4d5e6f", "aud_1a2b3c4d5e6f", "s3cret")
	assert.Contains(t, dsn, "host=tenants.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=aud_1a2b3c4d5e6f")
	assert.Contains(t, dsn, "password=s3cret")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDefaults(t *testing.T) {
	for _, k := range []string{"QUIZ_API_URL", "QUIZ_HTTP_TIMEOUT", "PROGRESS_DRIVER", "SHUFFLE_SEED"} {
		t.Setenv(k, "")
	}
	c := ClientFromEnv()
	assert.Equal(t, "http://localhost:8080", c.APIURL)
	assert.Equal(t, 15*time.Second, c.HTTPTimeout)
	assert.Equal(t, "sqlite", c.ProgressDriver)
	assert.Zero(t, c.ShuffleSeed)
}

func TestClientOverrides(t *testing.T) {
	t.Setenv("QUIZ_HTTP_TIMEOUT", "3s")
	t.Setenv("SHUFFLE_SEED", "42")
	t.Setenv("PROGRESS_TTL", "24h")
	c := ClientFromEnv()
	assert.Equal(t, 3*time.Second, c.HTTPTimeout)
	assert.Equal(t, uint64(42), c.ShuffleSeed)
	assert.Equal(t, 24*time.Hour, c.ProgressTTL)
}

func TestServerAccountsCSV(t *testing.T) {
	t.Setenv("ACCOUNTS", " sam:student:$2a$04$abc:7 , teach:teacher:$2a$04$def ,")
	s := ServerFromEnv()
	assert.Equal(t, []string{"sam:student:$2a$04$abc:7", "teach:teacher:$2a$04$def"}, s.Accounts)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(f, []byte("QUIZ_API_URL=http://quiz.test\nSITE_ID=lab-3\n"), 0o600))
	t.Setenv("QUIZ_API_URL", "")
	t.Setenv("SITE_ID", "kept")
	// unset so godotenv can fill it; t.Setenv restores it afterwards
	os.Unsetenv("QUIZ_API_URL")

	Load(f, filepath.Join(dir, "missing.env"))
	assert.Equal(t, "http://quiz.test", ClientFromEnv().APIURL)
	assert.Equal(t, "kept", ServerFromEnv().SiteID, "real environment wins")
}

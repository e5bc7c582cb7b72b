package access

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeList(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// expire forces the next check to re-read the file.
func (g *Gate) expire() {
	g.mu.Lock()
	g.loadedAt = time.Time{}
	g.mu.Unlock()
}

func TestGate_Authorizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_users.txt")
	writeList(t, path, "# comment\n12345\n@Some_User\n")

	g := NewGate(path, zap.NewNop())
	assert.True(t, g.IsAuthorized(12345, ""))
	assert.True(t, g.IsAuthorized(999, "some_user"))
	assert.True(t, g.IsAuthorized(999, "Some_User"))
	assert.False(t, g.IsAuthorized(999, ""))
	assert.False(t, g.IsAuthorized(999, "other_user"))
}

func TestGate_ReloadsWithoutRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_users.txt")
	writeList(t, path, "12345\n")

	g := NewGate(path, zap.NewNop())
	require.False(t, g.IsAuthorized(678, ""))

	writeList(t, path, "12345\n678\n")
	// ensure a distinct mtime even on coarse-grained filesystems
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(2*time.Second)))
	g.expire()

	assert.True(t, g.IsAuthorized(678, ""))
}

func TestGate_MissingFileDeniesEveryone(t *testing.T) {
	g := NewGate(filepath.Join(t.TempDir(), "nope.txt"), zap.NewNop())
	assert.False(t, g.IsAuthorized(12345, "some_user"))
}

func TestGate_KeepsLastGoodListOnReadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_users.txt")
	writeList(t, path, "12345\n")

	g := NewGate(path, zap.NewNop())
	require.True(t, g.IsAuthorized(12345, ""))

	require.NoError(t, os.Remove(path))
	g.expire()

	assert.True(t, g.IsAuthorized(12345, ""))
}

func TestNormalizeUsername(t *testing.T) {
	name, err := NormalizeUsername("@Good_Name1")
	require.NoError(t, err)
	assert.Equal(t, "good_name1", name)

	_, err = NormalizeUsername("ab")
	assert.Error(t, err)
	_, err = NormalizeUsername("has space")
	assert.Error(t, err)
}

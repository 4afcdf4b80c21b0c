package cgpath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClientPathRejectsMalformed(t *testing.T) {
	cases := []string{
		"/abs",
		"./rel",
		"a/../b",
		"..",
		"a/..",
		"a\x00b",
		string([]byte{0xff, 0xfe}),
	}

	for _, c := range cases {
		_, err := NormalizeClientPath(c)
		assert.ErrorIsf(t, err, ErrMalformed, "path %q", c)
	}
}

func TestNormalizeClientPathAcceptsAndCollapses(t *testing.T) {
	norm, err := NormalizeClientPath("a//b///c")
	require.NoError(t, err)
	assert.Equal(t, "a/b/c", norm)

	norm, err = NormalizeClientPath("")
	require.NoError(t, err)
	assert.Equal(t, "", norm)
}

func TestResolveStaysWithinBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a", "b"), 0o755))

	real, err := Resolve(base, "a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "a", "b"), real)
}

func TestResolveRejectsDotDotEscape(t *testing.T) {
	base := t.TempDir()

	_, err := Resolve(base, "../escaped")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(outside, "victim"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(outside, "victim"), filepath.Join(base, "link")))

	_, err := Resolve(base, "link")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestResolveRejectsSymlinkEscapeInAncestorOfNonexistentPath(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.Symlink(outside, filepath.Join(base, "link")))

	_, err := Resolve(base, "link/not-yet-created")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestResolveAllowsNonexistentDescendant(t *testing.T) {
	base := t.TempDir()

	real, err := Resolve(base, "not/yet/created")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "not", "yet", "created"), real)
}

func TestResolveEmptyPathIsBaseItself(t *testing.T) {
	base := t.TempDir()

	real, err := Resolve(base, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(base), real)
}

func TestResolveRejectsTooLong(t *testing.T) {
	base := t.TempDir()
	long := strings.Repeat("a", PathMax)

	_, err := Resolve(base, long)
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestRelativeTo(t *testing.T) {
	base := "/sys/fs/cgroup/memory/user/1000"

	assert.Equal(t, "/", RelativeTo(base, base))
	assert.Equal(t, "a/b", RelativeTo(base+"/a/b", base))
}

package verify

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/coupler-launcher/pkg/errors"
)

func writeFile(t *testing.T, content string) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.jar")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	sum := md5.Sum([]byte(content))
	return path, hex.EncodeToString(sum[:])
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		`"ABC123"`:     "abc123",
		`W/"abc123"`:   "abc123",
		` abc123 `:     "abc123",
		`w/"AbC123"`:   "abc123",
		`""`:           "",
		`plain-value`:  "plain-value",
		`"W/inside"`:   "w/inside",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestIsValid(t *testing.T) {
	path, sum := writeFile(t, "hello coupler")

	tests := []struct {
		name     string
		path     string
		expected string
		want     bool
	}{
		{"exact digest", path, sum, true},
		{"upper case digest", path, strings.ToUpper(sum), true},
		{"quoted etag", path, `"` + sum + `"`, true},
		{"weak etag", path, `W/"` + sum + `"`, true},
		{"mismatch", path, "00000000000000000000000000000000", false},
		{"empty expected", path, "", false},
		{"missing file", filepath.Join(t.TempDir(), "nope"), sum, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.path, tt.expected))
		})
	}
}

func TestIsValid_ZeroLengthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jar")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.False(t, IsValid(path, "d41d8cd98f00b204e9800998ecf8427e"))
}

func TestIsValid_Directory(t *testing.T) {
	assert.False(t, IsValid(t.TempDir(), "d41d8cd98f00b204e9800998ecf8427e"))
}

func TestIsValid_SHA256(t *testing.T) {
	path, _ := writeFile(t, "registry archive")
	sum := sha256.Sum256([]byte("registry archive"))
	assert.True(t, IsValid(path, hex.EncodeToString(sum[:])))
}

func TestIsValid_NoSideEffects(t *testing.T) {
	path, sum := writeFile(t, "content")
	before, err := os.Stat(path)
	require.NoError(t, err)

	IsValid(path, sum)
	IsValid(path, "bad")

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, before.Size(), after.Size())
}

func TestCheck_ReturnsMismatch(t *testing.T) {
	path, sum := writeFile(t, "content")

	err := Check(path, "ffffffffffffffffffffffffffffffff")
	var mismatch *errors.IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, sum, mismatch.Actual)
	assert.Equal(t, "ffffffffffffffffffffffffffffffff", mismatch.Expected)
	assert.ErrorIs(t, err, errors.ErrIntegrityMismatch)
}

func TestDigest(t *testing.T) {
	path, sum := writeFile(t, "abc")
	got, err := Digest(path)
	require.NoError(t, err)
	assert.Equal(t, sum, got)
}

func TestLooksLikeDigest(t *testing.T) {
	assert.True(t, LooksLikeDigest(`"d41d8cd98f00b204e9800998ecf8427e"`))
	assert.True(t, LooksLikeDigest("W/\"D41D8CD98F00B204E9800998ECF8427E\""))
	assert.True(t, LooksLikeDigest(strings.Repeat("ab", 32)))
	assert.False(t, LooksLikeDigest(`"5f1b-61a2c3e4"`))
	assert.False(t, LooksLikeDigest(strings.Repeat("zz", 16)))
	assert.False(t, LooksLikeDigest(""))
}

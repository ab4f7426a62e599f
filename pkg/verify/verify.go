// Package verify checks local files against an expected MD5 checksum or entity tag.
//
// Expected values are normalized before comparison: surrounding quotes and a weak
// validator prefix (W/) are stripped and case is ignored. A 64 character expected
// value is compared against the SHA-256 digest instead, which is what registry
// indexes publish.
package verify

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
)

const (
	md5HexLen    = 32
	sha256HexLen = 64
)

// Normalize canonicalizes a checksum or entity tag for comparison.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "W/" || s[:2] == "w/") {
		s = s[2:]
	}
	s = strings.Trim(s, `"`)
	return strings.ToLower(strings.TrimSpace(s))
}

// LooksLikeDigest reports whether s normalizes to a hex MD5 or SHA-256 digest.
// Entity tags that do not are opaque version identifiers and cannot be compared
// with file contents.
func LooksLikeDigest(s string) bool {
	n := Normalize(s)
	if len(n) != md5HexLen && len(n) != sha256HexLen {
		return false
	}
	_, err := hex.DecodeString(n)
	return err == nil
}

// Digest returns the hex MD5 digest of the file at path.
func Digest(path string) (string, error) {
	return digest(path, md5.New())
}

// DigestSHA256 returns the hex SHA-256 digest of the file at path.
func DigestSHA256(path string) (string, error) {
	return digest(path, sha256.New())
}

func digest(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%s is empty", path)
	}

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// digestFor picks the algorithm matching the normalized expected value.
func digestFor(path, expected string) (string, error) {
	if len(expected) == sha256HexLen {
		return DigestSHA256(path)
	}
	return Digest(path)
}

// Check compares the file at path with expected and returns an
// *errors.IntegrityMismatchError when they differ or the file cannot be hashed.
func Check(path, expected string) error {
	want := Normalize(expected)
	if want == "" {
		return &errors.IntegrityMismatchError{Path: path, Expected: expected}
	}

	got, err := digestFor(path, want)
	if err != nil {
		logger.Debug("Digest failed", logger.Fields{"path": path, "error": err})
		return &errors.IntegrityMismatchError{Path: path, Expected: want}
	}

	logger.Debug("Local MD5/Remote MD5", logger.Fields{"path": path, "local": got, "remote": want})
	if got != want {
		return &errors.IntegrityMismatchError{Path: path, Expected: want, Actual: got}
	}
	return nil
}

// IsValid reports whether the file at localPath exists, is non-empty and matches expected.
// It never modifies the file.
func IsValid(localPath, expected string) bool {
	return Check(localPath, expected) == nil
}

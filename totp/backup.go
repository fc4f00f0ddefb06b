package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// BackupCodes pairs the plaintext codes shown to the user exactly once with
// the hashes that get persisted. Plaintext must never be stored.
type BackupCodes struct {
	Plain  []string
	Hashes []string
}

// GenerateBackupCodes produces count random recovery codes of the given
// length from an unambiguous alphabet (no 0/O, 1/I).
func GenerateBackupCodes(count, length int) (*BackupCodes, error) {
	if count <= 0 || count > 64 {
		return nil, errors.New("invalid backup code count")
	}
	if length < 8 || length > 32 {
		return nil, errors.New("invalid backup code length")
	}

	codes := &BackupCodes{
		Plain:  make([]string, 0, count),
		Hashes: make([]string, 0, count),
	}

	buf := make([]byte, length)
	for i := 0; i < count; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		code := make([]byte, length)
		for j, b := range buf {
			code[j] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
		}
		plain := string(code)
		codes.Plain = append(codes.Plain, plain)
		codes.Hashes = append(codes.Hashes, HashBackupCode(plain))
	}

	return codes, nil
}

// HashBackupCode returns the hex SHA-256 digest stored in place of the code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// ConsumeBackupCode looks for the code's hash in hashes. On a match it
// returns the remaining hashes with the consumed entry removed, making the
// code single-use. The second return reports whether a match was found.
func ConsumeBackupCode(hashes []string, code string) ([]string, bool) {
	want := HashBackupCode(code)
	for i, h := range hashes {
		if h == want {
			remaining := make([]string, 0, len(hashes)-1)
			remaining = append(remaining, hashes[:i]...)
			remaining = append(remaining, hashes[i+1:]...)
			return remaining, true
		}
	}
	return hashes, false
}

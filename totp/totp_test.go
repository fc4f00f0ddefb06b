package totp

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"
)

// RFC 6238 Appendix B test vectors (SHA1, 8 digits, ASCII key "12345678901234567890").
func TestRFC6238Vectors(t *testing.T) {
	secret := []byte("12345678901234567890")
	m := NewManager(Config{Period: 30, Digits: 8, Skew: 0})

	vectors := []struct {
		unix int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
	}

	for _, v := range vectors {
		got, err := m.CodeAt(secret, time.Unix(v.unix, 0))
		if err != nil {
			t.Fatalf("CodeAt(%d) error: %v", v.unix, err)
		}
		if got != v.code {
			t.Fatalf("CodeAt(%d): expected %s, got %s", v.unix, v.code, got)
		}
	}
}

func TestVerifyCurrentCode(t *testing.T) {
	m := NewManager(DefaultConfig())
	raw, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret error: %v", err)
	}
	if len(raw) != 20 {
		t.Fatalf("expected 20 byte secret, got %d", len(raw))
	}

	decoded, err := DecodeSecret(encoded)
	if err != nil {
		t.Fatalf("DecodeSecret error: %v", err)
	}

	now := time.Now()
	code, err := m.CodeAt(decoded, now)
	if err != nil {
		t.Fatalf("CodeAt error: %v", err)
	}

	ok, step, err := m.VerifyCode(decoded, code, now)
	if err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}
	if !ok {
		t.Fatal("expected current code to verify")
	}
	if step != now.Unix()/30 {
		t.Fatalf("expected step %d, got %d", now.Unix()/30, step)
	}
}

func TestVerifyAcceptsAdjacentSteps(t *testing.T) {
	m := NewManager(DefaultConfig())
	secret := []byte("12345678901234567890")
	now := time.Unix(1700000000, 0)

	previous, err := m.CodeAt(secret, now.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt error: %v", err)
	}
	next, err := m.CodeAt(secret, now.Add(30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt error: %v", err)
	}

	if ok, _, _ := m.VerifyCode(secret, previous, now); !ok {
		t.Fatal("expected previous-step code to verify within skew")
	}
	if ok, _, _ := m.VerifyCode(secret, next, now); !ok {
		t.Fatal("expected next-step code to verify within skew")
	}
}

func TestVerifyRejectsOutsideSkew(t *testing.T) {
	m := NewManager(DefaultConfig())
	secret := []byte("12345678901234567890")
	now := time.Unix(1700000000, 0)

	stale, err := m.CodeAt(secret, now.Add(-2*30*time.Second))
	if err != nil {
		t.Fatalf("CodeAt error: %v", err)
	}

	if ok, _, _ := m.VerifyCode(secret, stale, now); ok {
		t.Fatal("expected code two steps behind to be rejected")
	}
}

func TestVerifyRejectsMalformedCode(t *testing.T) {
	m := NewManager(DefaultConfig())
	secret := []byte("12345678901234567890")
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		if ok, _, err := m.VerifyCode(secret, code, now); ok || err != nil {
			t.Fatalf("expected %q to be silently rejected, ok=%v err=%v", code, ok, err)
		}
	}
}

func TestProvisionURI(t *testing.T) {
	m := NewManager(Config{Issuer: "OSINT Desk", Period: 30, Digits: 6, Skew: 1})
	uri := m.ProvisionURI("JBSWY3DPEHPK3PXP", "analyst@example.com")

	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected scheme: %s", uri)
	}
	if !strings.Contains(uri, "secret=JBSWY3DPEHPK3PXP") {
		t.Fatalf("missing secret parameter: %s", uri)
	}
	if !strings.Contains(uri, "issuer=OSINT+Desk") {
		t.Fatalf("missing issuer parameter: %s", uri)
	}
}

func TestSecretEncodingRoundTrip(t *testing.T) {
	m := NewManager(DefaultConfig())
	raw, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret error: %v", err)
	}

	if strings.Contains(encoded, "=") {
		t.Fatal("expected unpadded base32 secret")
	}

	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatal("encoded secret does not round-trip")
	}
}

func TestBackupCodesSingleUse(t *testing.T) {
	codes, err := GenerateBackupCodes(10, 10)
	if err != nil {
		t.Fatalf("GenerateBackupCodes error: %v", err)
	}
	if len(codes.Plain) != 10 || len(codes.Hashes) != 10 {
		t.Fatalf("expected 10 codes, got %d/%d", len(codes.Plain), len(codes.Hashes))
	}

	remaining, ok := ConsumeBackupCode(codes.Hashes, codes.Plain[3])
	if !ok {
		t.Fatal("expected backup code to consume")
	}
	if len(remaining) != 9 {
		t.Fatalf("expected 9 remaining hashes, got %d", len(remaining))
	}

	if _, ok := ConsumeBackupCode(remaining, codes.Plain[3]); ok {
		t.Fatal("expected consumed code to be rejected on reuse")
	}
}

func TestConsumeUnknownBackupCode(t *testing.T) {
	codes, err := GenerateBackupCodes(4, 10)
	if err != nil {
		t.Fatalf("GenerateBackupCodes error: %v", err)
	}

	remaining, ok := ConsumeBackupCode(codes.Hashes, "NOTAREALCODE")
	if ok {
		t.Fatal("expected unknown code to be rejected")
	}
	if len(remaining) != 4 {
		t.Fatalf("expected hash set untouched, got %d", len(remaining))
	}
}

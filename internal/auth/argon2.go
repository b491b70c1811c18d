// Package auth hashes and verifies employee credentials and limits login
// attempts.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"firmcore/pkg/domain"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params are the argon2 cost parameters written into new hashes.
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultParams match the cost of hashes produced by earlier releases.
var DefaultParams = Params{Memory: 4096, Time: 3, Threads: 1, SaltLen: 16, KeyLen: 32}

var (
	// ErrMalformedHash is returned by Decode for strings that are not PHC argon2 hashes.
	ErrMalformedHash = errors.New("malformed argon2 hash")
	// ErrUnsupportedVariant is returned for argon2d or unknown variants.
	ErrUnsupportedVariant = errors.New("unsupported argon2 variant")
)

// Argon2 hashes passwords as PHC strings
// ($argon2id$v=19$m=...,t=...,p=...$salt$key) and verifies argon2i and
// argon2id hashes.
type Argon2 struct {
	Params Params
}

var _ domain.Authenticator = Argon2{}

// NewArgon2 returns an authenticator using DefaultParams.
func NewArgon2() Argon2 {
	return Argon2{Params: DefaultParams}
}

// Hash derives an argon2id hash of password with a fresh random salt.
func (a Argon2) Hash(password string) (string, error) {
	p := a.Params
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 || p.SaltLen <= 0 || p.KeyLen == 0 {
		p = DefaultParams
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return encode("argon2id", p, salt, key), nil
}

// Verify reports whether candidate matches storedHash. Malformed hashes
// never match.
func (a Argon2) Verify(storedHash, candidate string) bool {
	h, err := Decode(storedHash)
	if err != nil {
		return false
	}
	var key []byte
	switch h.Variant {
	case "argon2id":
		key = argon2.IDKey([]byte(candidate), h.Salt, h.Params.Time, h.Params.Memory, h.Params.Threads, h.Params.KeyLen)
	case "argon2i":
		key = argon2.Key([]byte(candidate), h.Salt, h.Params.Time, h.Params.Memory, h.Params.Threads, h.Params.KeyLen)
	default:
		return false
	}
	return subtle.ConstantTimeCompare(key, h.Key) == 1
}

// Decoded is a parsed PHC argon2 hash.
type Decoded struct {
	Variant string
	Version int
	Params  Params
	Salt    []byte
	Key     []byte
}

var b64 = base64.RawStdEncoding

func encode(variant string, p Params, salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		variant, argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

// Decode parses a PHC argon2 hash string.
func Decode(encoded string) (Decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Decoded{}, ErrMalformedHash
	}
	var d Decoded
	d.Variant = parts[1]
	if d.Variant != "argon2i" && d.Variant != "argon2id" {
		return Decoded{}, fmt.Errorf("%w: %s", ErrUnsupportedVariant, d.Variant)
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &d.Version); err != nil {
		return Decoded{}, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if d.Version != argon2.Version {
		return Decoded{}, fmt.Errorf("%w: version %d", ErrMalformedHash, d.Version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.Params.Memory, &d.Params.Time, &d.Params.Threads); err != nil {
		return Decoded{}, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Decoded{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	d.Salt = salt
	d.Key = key
	d.Params.SaltLen = len(salt)
	d.Params.KeyLen = uint32(len(key))
	return d, nil
}

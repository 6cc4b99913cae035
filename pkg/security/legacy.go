package security

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// werkzeug defaults when the method string omits them
const (
	defaultPBKDF2Iterations = 600000
	defaultScryptN          = 1 << 15
)

var pbkdf2Digests = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// verifyLegacy checks werkzeug hashes: "pbkdf2:sha256:600000$salt$hex" and
// "scrypt:32768:8:1$salt$hex". The salt is used as its literal text.
func verifyLegacy(password, encoded string) (bool, error) {
	method, rest, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, ErrInvalidHash
	}
	salt, digest, ok := strings.Cut(rest, "$")
	if !ok || salt == "" {
		return false, ErrInvalidHash
	}
	want, err := hex.DecodeString(digest)
	if err != nil || len(want) == 0 {
		return false, ErrInvalidHash
	}

	fields := strings.Split(method, ":")
	var got []byte
	switch fields[0] {
	case "pbkdf2":
		got, err = legacyPBKDF2(fields[1:], password, salt, len(want))
	case "scrypt":
		got, err = legacyScrypt(fields[1:], password, salt, len(want))
	default:
		return false, ErrInvalidHash
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func legacyPBKDF2(args []string, password, salt string, keyLen int) ([]byte, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, ErrInvalidHash
	}
	digest, ok := pbkdf2Digests[args[0]]
	if !ok {
		return nil, ErrInvalidHash
	}
	iterations := defaultPBKDF2Iterations
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return nil, ErrInvalidHash
		}
		iterations = n
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLen, digest), nil
}

func legacyScrypt(args []string, password, salt string, keyLen int) ([]byte, error) {
	n, r, p := defaultScryptN, 8, 1
	if len(args) != 0 && len(args) != 3 {
		return nil, ErrInvalidHash
	}
	if len(args) == 3 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil {
			return nil, ErrInvalidHash
		}
		if r, err = strconv.Atoi(args[1]); err != nil {
			return nil, ErrInvalidHash
		}
		if p, err = strconv.Atoi(args[2]); err != nil {
			return nil, ErrInvalidHash
		}
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, keyLen)
	if err != nil {
		return nil, ErrInvalidHash
	}
	return key, nil
}

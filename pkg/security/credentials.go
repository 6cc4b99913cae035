package security

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// InitialPassword derives the first password handed to an imported salesperson: the
// first three letters of the first and last name, lowercased. Names with fewer than two
// parts yield ok=false.
func InitialPassword(fullName string) (string, bool) {
	parts := strings.Fields(strings.ToLower(fullName))
	if len(parts) < 2 {
		return "", false
	}
	return firstRunes(parts[0], 3) + firstRunes(parts[len(parts)-1], 3), true
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	return string(r[:min(n, len(r))])
}

// GenerateTempPassword returns a random password of length characters. Look-alike
// characters (0/O, 1/l/I) are left out since admins read these out to salespeople.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	limit := big.NewInt(int64(len(tempPasswordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}

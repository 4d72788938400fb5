package room

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Alphabet has 32 symbols and leaves out 0/O and 1/I.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLen = 4

const maxDraws = 20

var ErrCodeSpaceExhausted = errors.New("no free room code")

// CodeAllocator draws room codes. The zero value uses crypto/rand and uuid.
type CodeAllocator struct {
	Draw     func() (string, error)
	Fallback func() string
}

func GenerateCode() (string, error) {
	code := make([]byte, CodeLen)
	size := big.NewInt(int64(len(Alphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// uuidCode maps the first CodeLen nibbles of a random uuid onto Alphabet.
func uuidCode() string {
	id := uuid.New()
	code := make([]byte, CodeLen)
	for i := range code {
		nibble := id[i/2] >> (4 * (1 - i%2)) & 0x0f
		code[i] = Alphabet[nibble]
	}
	return string(code)
}

// Allocate returns a code for which taken reports false. It tries maxDraws codes
// from the alphabet, then maxDraws uuid-derived codes, and gives up after that.
func (a CodeAllocator) Allocate(taken func(code string) bool) (string, error) {
	draw, fallback := a.Draw, a.Fallback
	if draw == nil {
		draw = GenerateCode
	}
	if fallback == nil {
		fallback = uuidCode
	}

	var lastErr error
	for i := 0; i < maxDraws; i++ {
		c, err := draw()
		if err != nil {
			lastErr = err
			continue
		}
		if c = NormalizeCode(c); !taken(c) {
			return c, nil
		}
	}
	for i := 0; i < maxDraws; i++ {
		if c := NormalizeCode(fallback()); !taken(c) {
			return c, nil
		}
	}
	if lastErr != nil {
		return "", errors.Join(ErrCodeSpaceExhausted, lastErr)
	}
	return "", ErrCodeSpaceExhausted
}

// NormalizeCode makes user-typed codes comparable.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

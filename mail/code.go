package mail

import (
	"crypto/rand"
	"log"
	"strings"

	"github.com/google/uuid"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	codePartLength = 11
)

// CodeGenerator produces verification codes. Codes are opaque; uniqueness is
// probabilistic.
type CodeGenerator func() string

// GenerateCode returns two random base-36 strings concatenated.
func GenerateCode() string {
	return randomBase36(codePartLength) + randomBase36(codePartLength)
}

// randomBase36 draws n characters from crypto/rand, rejecting bytes that
// would bias the distribution.
func randomBase36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	buf := make([]byte, 2*n)
	for sb.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand does not fail on supported platforms; fall back to uuid entropy
			log.Printf("WARN: crypto/rand failed, using uuid for code entropy: %v", err)
			return fallbackBase36(n)
		}
		for _, b := range buf {
			if b >= 252 { // 252 = 36 * 7
				continue
			}
			sb.WriteByte(base36Alphabet[b%36])
			if sb.Len() == n {
				break
			}
		}
	}
	return sb.String()
}

func fallbackBase36(n int) string {
	id := uuid.New()
	var sb strings.Builder
	for sb.Len() < n {
		for _, b := range id {
			sb.WriteByte(base36Alphabet[int(b)%36])
			if sb.Len() == n {
				break
			}
		}
		id = uuid.New()
	}
	return sb.String()
}

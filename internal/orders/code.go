package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// codeAlphabet avoids 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeSuffixLen = 6

// GenerateCode produces a human-facing order code of the form
// ORD-20260901-K7M2QX. Uniqueness is enforced by the database; on the rare
// collision the checkout engine retries with a fresh code.
func GenerateCode(at time.Time) (string, error) {
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), string(buf)), nil
}

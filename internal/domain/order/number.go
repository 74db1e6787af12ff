package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

// numberAlphabet deliberately omits 0/O and 1/I so numbers read unambiguously
// over the front-desk phone.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewNumber generates a human-facing order number such as "HM-20260901-K7KQ2M".
// It is distinct from the surrogate id; uniqueness is enforced by the store.
func NewNumber(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; treat it as fatal.
		panic(fmt.Sprintf("order number entropy: %v", err))
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("HM-%s-%s", now.Format("20060102"), buf)
}

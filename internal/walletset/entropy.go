package walletset

import (
	"crypto/rand"
	"io"
)

// Reader is the cryptographically secure random source used for mnemonic
// words and AIRA IDs. Tests may replace it.
//
//nolint:gochecknoglobals // Package-level RNG is required for testability
var Reader io.Reader = rand.Reader

// RandomBytes reads n bytes from r, or from Reader when r is nil.
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

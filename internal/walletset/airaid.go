package walletset

import (
	"encoding/hex"
	"io"
	"regexp"
	"strings"
)

const (
	// AiraIDPrefix starts every AIRA ID.
	AiraIDPrefix = "AIRA"

	// airaIDRandomBytes is the number of random bytes behind an AIRA ID.
	airaIDRandomBytes = 6
)

// airaIDRegex matches AIRA followed by 12 uppercase hex characters.
var airaIDRegex = regexp.MustCompile(`^AIRA[0-9A-F]{12}$`)

// NewAiraID generates a fresh AIRA ID from r (Reader when nil). The ID is
// random and unrelated to any mnemonic.
func NewAiraID(r io.Reader) (string, error) {
	b, err := RandomBytes(r, airaIDRandomBytes)
	if err != nil {
		return "", err
	}
	return AiraIDPrefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// ValidAiraID reports whether id has the AIRA + 12 uppercase hex shape.
func ValidAiraID(id string) bool {
	return airaIDRegex.MatchString(id)
}

package walletset

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Chain identifies one of the networks a WalletSet carries an address for.
// The string value is the chain tag mixed into the address digest.
type Chain string

// Supported chains, in the order their addresses appear in a store record.
const (
	EVM      Chain = "evm"
	Celestia Chain = "celestia"
	Solana   Chain = "solana"
	Aptos    Chain = "aptos"
	Sui      Chain = "sui"
)

// Chains returns every supported chain in record order.
func Chains() []Chain {
	return []Chain{EVM, Celestia, Solana, Aptos, Sui}
}

// String returns the chain tag.
func (c Chain) String() string {
	return string(c)
}

// IsValid returns true if c is a known chain.
func (c Chain) IsValid() bool {
	switch c {
	case EVM, Celestia, Solana, Aptos, Sui:
		return true
	default:
		return false
	}
}

// Prefix returns the textual prefix of the chain's address shape.
func (c Chain) Prefix() string {
	switch c {
	case EVM, Aptos, Sui:
		return "0x"
	case Celestia:
		return "celestia1"
	case Solana:
		return ""
	default:
		return ""
	}
}

// HexLength returns how many hex characters of the digest follow the prefix.
func (c Chain) HexLength() int {
	switch c {
	case EVM:
		return 40
	case Celestia:
		return 38
	case Solana:
		return 44
	case Aptos, Sui:
		return sha256.Size * 2
	default:
		return 0
	}
}

// AddressLength returns the total length of an address for the chain.
func (c Chain) AddressLength() int {
	return len(c.Prefix()) + c.HexLength()
}

// DeriveAddress computes the chain's address for a mnemonic: the
// lowercase hex sha256 digest of mnemonic+tag, truncated and prefixed to
// the chain's shape. It is a pure function of (mnemonic, chain).
//
// These strings are address-shaped identifiers only; they are not keys
// that can sign on the real networks.
func DeriveAddress(mnemonic string, c Chain) string {
	if !c.IsValid() {
		return ""
	}
	sum := sha256.Sum256([]byte(mnemonic + c.String()))
	digest := hex.EncodeToString(sum[:])
	return c.Prefix() + digest[:c.HexLength()]
}

// ValidAddress reports whether addr has the prefix, length and lowercase
// hex body of the chain's address shape.
func ValidAddress(c Chain, addr string) bool {
	if !c.IsValid() || len(addr) != c.AddressLength() {
		return false
	}
	body, ok := strings.CutPrefix(addr, c.Prefix())
	if !ok {
		return false
	}
	return isLowerHex(body)
}

func isLowerHex(s string) bool {
	for _, r := range s {
		isDigit := r >= '0' && r <= '9'
		isLower := r >= 'a' && r <= 'f'
		if !isDigit && !isLower {
			return false
		}
	}
	return true
}

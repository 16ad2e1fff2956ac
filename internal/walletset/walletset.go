// Package walletset defines the per-identity wallet bundle and the
// routines that generate it: a random mnemonic, five chain-shaped
// addresses derived from it, and an independent AIRA ID.
package walletset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// WalletSet is the bundle stored for one identity.
type WalletSet struct {
	Email          string `json:"email"`
	Mnemonic       string `json:"mnemonic"`
	EVMWallet      string `json:"evmWallet"`
	CelestiaWallet string `json:"celestiaWallet"`
	SolanaWallet   string `json:"solanaWallet"`
	AptosWallet    string `json:"aptosWallet"`
	SuiWallet      string `json:"suiWallet"`
	AiraID         string `json:"airaId"`
}

// Address returns the stored address for a chain.
func (w *WalletSet) Address(c Chain) string {
	switch c {
	case EVM:
		return w.EVMWallet
	case Celestia:
		return w.CelestiaWallet
	case Solana:
		return w.SolanaWallet
	case Aptos:
		return w.AptosWallet
	case Sui:
		return w.SuiWallet
	default:
		return ""
	}
}

// Addresses returns the five addresses keyed by chain.
func (w *WalletSet) Addresses() map[Chain]string {
	out := make(map[Chain]string, len(Chains()))
	for _, c := range Chains() {
		out[c] = w.Address(c)
	}
	return out
}

// FromMnemonic builds the WalletSet for email whose addresses are derived
// from mnemonic. The AIRA ID is left for the caller to assign.
func FromMnemonic(email, mnemonic string) WalletSet {
	return WalletSet{
		Email:          email,
		Mnemonic:       mnemonic,
		EVMWallet:      DeriveAddress(mnemonic, EVM),
		CelestiaWallet: DeriveAddress(mnemonic, Celestia),
		SolanaWallet:   DeriveAddress(mnemonic, Solana),
		AptosWallet:    DeriveAddress(mnemonic, Aptos),
		SuiWallet:      DeriveAddress(mnemonic, Sui),
	}
}

// Generator creates new WalletSets.
type Generator struct {
	// Rand supplies entropy for words and AIRA IDs. Nil means Reader.
	Rand io.Reader

	// Words is the list mnemonic words are drawn from. Nil means BIP39.
	Words []string
}

// NewGenerator returns a generator drawing from the named word list.
func NewGenerator(wordList string) (*Generator, error) {
	words, err := WordList(wordList)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, wordList)
	}
	return &Generator{Words: words}, nil
}

// Generate creates a new WalletSet for email. Every call consumes fresh
// entropy, so two calls never return the same mnemonic in practice.
func (g *Generator) Generate(email string) (WalletSet, error) {
	words := g.Words
	if words == nil {
		words = bip39Words()
	}

	mnemonic, err := GenerateMnemonic(g.Rand, words, MnemonicWords)
	if err != nil {
		return WalletSet{}, fmt.Errorf("generating mnemonic: %w", err)
	}

	airaID, err := NewAiraID(g.Rand)
	if err != nil {
		return WalletSet{}, fmt.Errorf("generating aira id: %w", err)
	}

	ws := FromMnemonic(email, mnemonic)
	ws.AiraID = airaID
	return ws, nil
}

func bip39Words() []string {
	words, _ := WordList(WordListBIP39)
	return words
}

// MaxEmailLength is the longest key, in bytes, the directory accepts.
const MaxEmailLength = 320

// ValidateEmail checks that email can serve as a directory key. The value
// is otherwise opaque: format validation belongs to the caller, but the
// key must be non-empty, at most MaxEmailLength bytes, and free of
// whitespace and double quotes so it survives the line-oriented store.
func ValidateEmail(email string) error {
	if email == "" {
		return wderr.ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return wderr.WithDetails(wderr.ErrEmailTooLong, map[string]string{
			"max_length": strconv.Itoa(MaxEmailLength),
		})
	}
	if strings.ContainsFunc(email, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || unicode.IsControl(r)
	}) {
		return wderr.WithDetails(wderr.ErrInvalidEmail, map[string]string{"email": email})
	}
	return nil
}

package walletset

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// MnemonicWords is the number of words in every generated mnemonic.
const MnemonicWords = 12

var (
	// ErrEmptyWordList indicates a word list with no entries.
	ErrEmptyWordList = errors.New("word list is empty")

	// ErrUnknownWordList indicates an unsupported word list name.
	ErrUnknownWordList = errors.New("unknown word list")

	// ErrInvalidWordCount indicates a non-positive mnemonic length.
	ErrInvalidWordCount = errors.New("word count must be positive")
)

// Word list names accepted by WordList.
const (
	WordListBIP39  = "bip39"
	WordListLegacy = "legacy"
)

// legacyWords is the 48-word list early deployments drew mnemonics from.
// Every entry is also a BIP39 English word.
//
//nolint:gochecknoglobals // Fixed word list
var legacyWords = []string{
	"abandon", "ability", "able", "about", "above", "absent", "absorb", "abstract", "absurd", "abuse", "access", "accident",
	"account", "accuse", "achieve", "acid", "acoustic", "acquire", "across", "act", "action", "actor", "actual", "adapt",
	"add", "addict", "address", "adjust", "admit", "adult", "advance", "advice", "aerobic", "affair", "afford", "afraid",
	"again", "age", "agent", "agree", "ahead", "aim", "air", "airport", "aisle", "alarm", "album", "alcohol",
}

// WordList returns the named word list. An empty name selects the BIP39
// English list.
func WordList(name string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", WordListBIP39:
		return bip39.GetWordList(), nil
	case WordListLegacy:
		out := make([]string, len(legacyWords))
		copy(out, legacyWords)
		return out, nil
	default:
		return nil, ErrUnknownWordList
	}
}

// GenerateMnemonic draws count words independently, with replacement, from
// words using r. Each draw is uniform over the list.
func GenerateMnemonic(r io.Reader, words []string, count int) (string, error) {
	if len(words) == 0 {
		return "", ErrEmptyWordList
	}
	if count <= 0 {
		return "", ErrInvalidWordCount
	}
	if r == nil {
		r = Reader
	}

	limit := big.NewInt(int64(len(words)))
	picked := make([]string, count)
	for i := range picked {
		n, err := rand.Int(r, limit)
		if err != nil {
			return "", err
		}
		picked[i] = words[n.Int64()]
	}

	return strings.Join(picked, " "), nil
}

// IsBIP39Word checks if a word is in the BIP39 English word list.
func IsBIP39Word(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

package walletset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

var errShortRead = errors.New("entropy source exhausted")

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errShortRead }

const fixedMnemonic = "abandon ability able about above absent absorb abstract absurd abuse access accident"

func TestDeriveAddress_Deterministic(t *testing.T) {
	t.Parallel()

	for _, c := range Chains() {
		first := DeriveAddress(fixedMnemonic, c)
		second := DeriveAddress(fixedMnemonic, c)
		assert.Equal(t, first, second, "chain %s", c)
		assert.True(t, ValidAddress(c, first), "chain %s produced %q", c, first)
	}
}

func TestDeriveAddress_MatchesDigest(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte(fixedMnemonic + "evm"))
	digest := hex.EncodeToString(sum[:])
	assert.Equal(t, "0x"+digest[:40], DeriveAddress(fixedMnemonic, EVM))

	sum = sha256.Sum256([]byte(fixedMnemonic + "celestia"))
	digest = hex.EncodeToString(sum[:])
	assert.Equal(t, "celestia1"+digest[:38], DeriveAddress(fixedMnemonic, Celestia))

	sum = sha256.Sum256([]byte(fixedMnemonic + "solana"))
	digest = hex.EncodeToString(sum[:])
	assert.Equal(t, digest[:44], DeriveAddress(fixedMnemonic, Solana))

	sum = sha256.Sum256([]byte(fixedMnemonic + "aptos"))
	assert.Equal(t, "0x"+hex.EncodeToString(sum[:]), DeriveAddress(fixedMnemonic, Aptos))

	sum = sha256.Sum256([]byte(fixedMnemonic + "sui"))
	assert.Equal(t, "0x"+hex.EncodeToString(sum[:]), DeriveAddress(fixedMnemonic, Sui))
}

func TestDeriveAddress_Shapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		chain  Chain
		prefix string
		length int
	}{
		{EVM, "0x", 42},
		{Celestia, "celestia1", 47},
		{Solana, "", 44},
		{Aptos, "0x", 66},
		{Sui, "0x", 66},
	}

	for _, tt := range tests {
		t.Run(tt.chain.String(), func(t *testing.T) {
			t.Parallel()
			addr := DeriveAddress(fixedMnemonic, tt.chain)
			assert.True(t, strings.HasPrefix(addr, tt.prefix))
			assert.Len(t, addr, tt.length)
			assert.Equal(t, tt.length, tt.chain.AddressLength())
		})
	}
}

func TestDeriveAddress_ChainsDiffer(t *testing.T) {
	t.Parallel()

	// Aptos and Sui share a shape but not a tag.
	assert.NotEqual(t, DeriveAddress(fixedMnemonic, Aptos), DeriveAddress(fixedMnemonic, Sui))
	assert.Empty(t, DeriveAddress(fixedMnemonic, Chain("btc")))
}

func TestValidAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		chain Chain
		addr  string
		want  bool
	}{
		{"evm ok", EVM, "0x" + strings.Repeat("a1", 20), true},
		{"evm uppercase", EVM, "0x" + strings.Repeat("A1", 20), false},
		{"evm short", EVM, "0xabc", false},
		{"evm no prefix", EVM, strings.Repeat("ab", 21), false},
		{"celestia ok", Celestia, "celestia1" + strings.Repeat("0", 38), true},
		{"solana ok", Solana, strings.Repeat("f", 44), true},
		{"solana non-hex", Solana, strings.Repeat("g", 44), false},
		{"unknown chain", Chain("btc"), "0x00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidAddress(tt.chain, tt.addr))
		})
	}
}

func TestNewAiraID(t *testing.T) {
	t.Parallel()

	id, err := NewAiraID(nil)
	require.NoError(t, err)
	assert.Len(t, id, 16)
	assert.True(t, ValidAiraID(id), id)
	assert.Regexp(t, `^AIRA[0-9A-F]{12}$`, id)
}

func TestNewAiraID_FixedEntropy(t *testing.T) {
	t.Parallel()

	id, err := NewAiraID(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}))
	require.NoError(t, err)
	assert.Equal(t, "AIRADEADBEEF0102", id)
}

func TestNewAiraID_ReaderError(t *testing.T) {
	t.Parallel()

	_, err := NewAiraID(failingReader{})
	require.ErrorIs(t, err, errShortRead)
}

func TestValidAiraID(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidAiraID("AIRA0123456789AB"))
	assert.False(t, ValidAiraID("AIRA0123456789ab"))
	assert.False(t, ValidAiraID("AIRA0123456789A"))
	assert.False(t, ValidAiraID("XIRA0123456789AB"))
	assert.False(t, ValidAiraID(""))
}

func TestGenerateMnemonic(t *testing.T) {
	t.Parallel()

	words, err := WordList(WordListBIP39)
	require.NoError(t, err)

	m, err := GenerateMnemonic(nil, words, MnemonicWords)
	require.NoError(t, err)

	parts := strings.Split(m, " ")
	require.Len(t, parts, MnemonicWords)
	for _, w := range parts {
		assert.True(t, IsBIP39Word(w), w)
	}
}

func TestGenerateMnemonic_Errors(t *testing.T) {
	t.Parallel()

	_, err := GenerateMnemonic(nil, nil, 12)
	require.ErrorIs(t, err, ErrEmptyWordList)

	_, err = GenerateMnemonic(nil, []string{"abandon"}, 0)
	require.ErrorIs(t, err, ErrInvalidWordCount)

	_, err = GenerateMnemonic(failingReader{}, []string{"abandon", "ability"}, 12)
	require.ErrorIs(t, err, errShortRead)
}

func TestWordList(t *testing.T) {
	t.Parallel()

	bip, err := WordList("")
	require.NoError(t, err)
	assert.Len(t, bip, 2048)

	legacy, err := WordList("LEGACY")
	require.NoError(t, err)
	assert.Len(t, legacy, 48)
	for _, w := range legacy {
		assert.True(t, IsBIP39Word(w), w)
	}

	_, err = WordList("klingon")
	require.ErrorIs(t, err, ErrUnknownWordList)
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(WordListLegacy)
	require.NoError(t, err)

	ws, err := g.Generate("a@x.com")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", ws.Email)
	assert.Len(t, strings.Fields(ws.Mnemonic), MnemonicWords)
	assert.True(t, ValidAiraID(ws.AiraID))
	for _, c := range Chains() {
		assert.Equal(t, DeriveAddress(ws.Mnemonic, c), ws.Address(c), "chain %s", c)
	}
}

func TestGenerator_Uniqueness(t *testing.T) {
	t.Parallel()

	g := &Generator{}
	a, err := g.Generate("a@x.com")
	require.NoError(t, err)
	b, err := g.Generate("b@x.com")
	require.NoError(t, err)

	assert.NotEqual(t, a.Mnemonic, b.Mnemonic)
	assert.NotEqual(t, a.AiraID, b.AiraID)
	for _, c := range Chains() {
		assert.NotEqual(t, a.Address(c), b.Address(c), "chain %s", c)
	}
}

func TestGenerator_EntropyFailure(t *testing.T) {
	t.Parallel()

	g := &Generator{Rand: failingReader{}}
	_, err := g.Generate("a@x.com")
	require.ErrorIs(t, err, errShortRead)
}

func TestNewGenerator_UnknownList(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator("nope")
	require.ErrorIs(t, err, ErrUnknownWordList)
}

func TestFromMnemonic_AddressesMap(t *testing.T) {
	t.Parallel()

	ws := FromMnemonic("a@x.com", fixedMnemonic)
	addrs := ws.Addresses()
	require.Len(t, addrs, 5)
	assert.Equal(t, ws.EVMWallet, addrs[EVM])
	assert.Equal(t, ws.SuiWallet, addrs[Sui])
	assert.Empty(t, ws.AiraID)
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"plain", "a@x.com", nil},
		{"mixed case kept", "Alice@Example.COM", nil},
		{"not even an email", "alice", nil},
		{"empty", "", wderr.ErrEmailRequired},
		{"space", "a b@x.com", wderr.ErrInvalidEmail},
		{"tab", "a\t@x.com", wderr.ErrInvalidEmail},
		{"newline", "a@x.com\n", wderr.ErrInvalidEmail},
		{"quote", `a"@x.com`, wderr.ErrInvalidEmail},
		{"at limit", strings.Repeat("a", MaxEmailLength-6) + "@x.com", nil},
		{"over limit", strings.Repeat("a", MaxEmailLength-5) + "@x.com", wderr.ErrEmailTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEmail(tt.email)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, wderr.ErrInvalidInput)
		})
	}
}

package directory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

const (
	storeFilePerm = 0o600
	storeDirPerm  = 0o750

	// lockSuffix names the advisory lock file kept next to the store. The
	// store itself is replaced by rename on every write, so it cannot
	// carry the lock.
	lockSuffix = ".lock"

	// maxLineBytes bounds a single store line.
	maxLineBytes = 64 * 1024

	// addressFields is the number of chain addresses on a line.
	addressFields = 5
)

// CorruptRecordError describes a store line that could not be parsed.
// It matches wderr.ErrCorruptRecord under errors.Is.
type CorruptRecordError struct {
	Line   int    // 1-based line number, 0 when parsed outside a file
	Reason string // what is wrong with the line
	Text   string // the raw line
}

func (e *CorruptRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", wderr.ErrCorruptRecord.Message, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", wderr.ErrCorruptRecord.Message, e.Reason)
}

// Unwrap exposes the coded sentinel.
func (e *CorruptRecordError) Unwrap() error {
	return wderr.ErrCorruptRecord
}

func corrupt(text, reason string) *CorruptRecordError {
	return &CorruptRecordError{Reason: reason, Text: text}
}

// FormatRecord renders ws as one store line, without the newline:
//
//	<email> "<mnemonic>" <evm> <celestia> <solana> <aptos> <sui> <airaId>
//
// A record without an AIRA ID keeps the trailing separator, matching the
// lines older deployments wrote.
func FormatRecord(ws *walletset.WalletSet) string {
	var b strings.Builder
	b.Grow(len(ws.Email) + len(ws.Mnemonic) + 256)
	b.WriteString(ws.Email)
	b.WriteString(` "`)
	b.WriteString(ws.Mnemonic)
	b.WriteString(`"`)
	for _, c := range walletset.Chains() {
		b.WriteByte(' ')
		b.WriteString(ws.Address(c))
	}
	b.WriteByte(' ')
	b.WriteString(ws.AiraID)
	return b.String()
}

// ParseRecord parses a single store line. Any deviation from the layout
// written by FormatRecord yields a *CorruptRecordError.
func ParseRecord(text string) (walletset.WalletSet, error) {
	line := strings.TrimSuffix(text, "\r")

	email, rest, ok := strings.Cut(line, " ")
	if !ok || email == "" {
		return walletset.WalletSet{}, corrupt(text, "missing email field")
	}
	if err := walletset.ValidateEmail(email); err != nil {
		return walletset.WalletSet{}, corrupt(text, "invalid email")
	}

	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, `"`) {
		return walletset.WalletSet{}, corrupt(text, "mnemonic is not quoted")
	}
	end := strings.IndexByte(rest[1:], '"')
	if end < 0 {
		return walletset.WalletSet{}, corrupt(text, "unterminated mnemonic quote")
	}
	mnemonic := rest[1 : end+1]
	if strings.TrimSpace(mnemonic) == "" {
		return walletset.WalletSet{}, corrupt(text, "empty mnemonic")
	}

	rest = rest[end+2:]
	if !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return walletset.WalletSet{}, corrupt(text, "missing fields after mnemonic")
	}
	fields := strings.Split(strings.TrimLeft(rest, " \t"), " ")
	if len(fields) < addressFields+1 {
		return walletset.WalletSet{}, corrupt(text,
			fmt.Sprintf("expected %d fields after mnemonic, found %d", addressFields+1, len(fields)))
	}
	for _, extra := range fields[addressFields+1:] {
		if extra != "" {
			return walletset.WalletSet{}, corrupt(text, "unexpected trailing fields")
		}
	}

	ws := walletset.WalletSet{
		Email:          email,
		Mnemonic:       mnemonic,
		EVMWallet:      fields[0],
		CelestiaWallet: fields[1],
		SolanaWallet:   fields[2],
		AptosWallet:    fields[3],
		SuiWallet:      fields[4],
		AiraID:         fields[5],
	}
	for _, c := range walletset.Chains() {
		if ws.Address(c) == "" {
			return walletset.WalletSet{}, corrupt(text, "missing "+c.String()+" address")
		}
	}
	if ws.AiraID != "" && !walletset.ValidAiraID(ws.AiraID) {
		return walletset.WalletSet{}, corrupt(text, "malformed aira id")
	}

	return ws, nil
}

// entry is one retained line of the store: a parsed record, or a line
// kept verbatim (comments and corrupt records) so a rewrite never
// destroys data an operator may still repair.
type entry struct {
	set *walletset.WalletSet
	raw string
}

// snapshot is the in-memory image of the store for one operation.
type snapshot struct {
	entries []entry
	index   map[string]int
	airaIDs map[string]struct{}
	corrupt []*CorruptRecordError
}

func newSnapshot() *snapshot {
	return &snapshot{
		index:   make(map[string]int),
		airaIDs: make(map[string]struct{}),
	}
}

// decodeStore reads the whole store. Malformed lines, including lines
// longer than maxLineBytes, are collected and never fatal; only I/O
// errors are returned.
func decodeStore(r io.Reader) (*snapshot, error) {
	snap := newSnapshot()
	br := bufio.NewReader(r)

	lineNo := 0
	for {
		text, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if text == "" && err != nil {
			break
		}
		lineNo++
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		snap.addLine(lineNo, text)
		if err != nil {
			break
		}
	}
	return snap, nil
}

// addLine files one raw store line into the snapshot.
func (s *snapshot) addLine(lineNo int, text string) {
	if len(text) > maxLineBytes {
		s.keepCorrupt(&CorruptRecordError{
			Line:   lineNo,
			Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes),
			Text:   text,
		})
		return
	}

	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return
	case strings.HasPrefix(trimmed, "#"):
		s.entries = append(s.entries, entry{raw: text})
		return
	}

	ws, err := ParseRecord(text)
	if err != nil {
		var cre *CorruptRecordError
		if !errors.As(err, &cre) {
			cre = &CorruptRecordError{Reason: err.Error(), Text: text}
		}
		cre.Line = lineNo
		s.keepCorrupt(cre)
		return
	}
	if _, dup := s.index[ws.Email]; dup {
		s.keepCorrupt(&CorruptRecordError{Line: lineNo, Reason: "duplicate email", Text: text})
		return
	}
	s.add(ws)
}

func (s *snapshot) keepCorrupt(cre *CorruptRecordError) {
	s.corrupt = append(s.corrupt, cre)
	s.entries = append(s.entries, entry{raw: cre.Text})
}

// encode writes every retained line in order.
func (s *snapshot) encode(w io.Writer) error {
	for _, e := range s.entries {
		line := e.raw
		if e.set != nil {
			line = FormatRecord(e.set)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (s *snapshot) find(email string) (walletset.WalletSet, bool) {
	i, ok := s.index[email]
	if !ok {
		return walletset.WalletSet{}, false
	}
	return *s.entries[i].set, true
}

func (s *snapshot) add(ws walletset.WalletSet) {
	s.index[ws.Email] = len(s.entries)
	s.entries = append(s.entries, entry{set: &ws})
	if ws.AiraID != "" {
		s.airaIDs[ws.AiraID] = struct{}{}
	}
}

func (s *snapshot) remove(email string) bool {
	i, ok := s.index[email]
	if !ok {
		return false
	}
	if id := s.entries[i].set.AiraID; id != "" {
		delete(s.airaIDs, id)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, email)
	for j := i; j < len(s.entries); j++ {
		if s.entries[j].set != nil {
			s.index[s.entries[j].set.Email] = j
		}
	}
	return true
}

func (s *snapshot) hasAiraID(id string) bool {
	_, ok := s.airaIDs[id]
	return ok
}

// sets returns the parsed records in store order.
func (s *snapshot) sets() []walletset.WalletSet {
	out := make([]walletset.WalletSet, 0, len(s.index))
	for _, e := range s.entries {
		if e.set != nil {
			out = append(out, *e.set)
		}
	}
	return out
}

// Package directory owns the email to WalletSet mapping and its flat-file
// store. Every operation re-reads the store under a directory-wide lock
// and an advisory file lock, so several handlers and several processes
// may share one store file.
package directory

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sasha-s/go-deadlock"

	"github.com/aira-payment/walletdir/internal/fileutil"
	"github.com/aira-payment/walletdir/internal/metrics"
	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// maxAiraIDAttempts bounds retries when a fresh AIRA ID collides with a
// stored one.
const maxAiraIDAttempts = 8

// errAiraIDExhausted is returned when no unused AIRA ID could be drawn.
var errAiraIDExhausted = errors.New("could not draw an unused aira id")

// Logger is the logging surface the directory needs. *config.Logger
// satisfies it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Stats summarizes the store.
type Stats struct {
	Path          string `json:"path"`
	Records       int    `json:"records"`
	CorruptLines  int    `json:"corruptLines"`
	MissingAiraID int    `json:"missingAiraId"`
}

// Directory is the durable, deduplicated mapping of email to WalletSet.
// Construct one per store with New and share it.
type Directory struct {
	path     string
	lockPath string
	gen      *walletset.Generator
	logger   Logger
	metrics  *metrics.Metrics

	mu deadlock.RWMutex

	// reported counts the corrupt lines already logged, keyed by text, so
	// a bad line is logged and counted once rather than on every load.
	reportMu deadlock.Mutex
	reported map[string]int
}

// New opens the directory backed by the store at path, creating an empty
// store if none exists. A nil gen draws from the BIP39 list, a nil logger
// discards output, and nil m records into metrics.Global.
func New(path string, gen *walletset.Generator, logger Logger, m *metrics.Metrics) (*Directory, error) {
	if path == "" {
		return nil, wderr.WithDetails(wderr.ErrStorage, map[string]string{"reason": "store path is empty"})
	}
	if gen == nil {
		gen = &walletset.Generator{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if m == nil {
		m = metrics.Global
	}

	if err := fileutil.EnsureFile(path, storeDirPerm, storeFilePerm); err != nil {
		return nil, wderr.WithCause(wderr.ErrStorage, err)
	}

	return &Directory{
		path:     path,
		lockPath: path + lockSuffix,
		gen:      gen,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Path returns the store file path.
func (d *Directory) Path() string {
	return d.path
}

// GetOrCreate returns the WalletSet stored for email, generating and
// persisting a new one on first use. Concurrent calls for the same new
// email persist exactly one record and all return it.
func (d *Directory) GetOrCreate(email string) (walletset.WalletSet, error) {
	if err := walletset.ValidateEmail(email); err != nil {
		return walletset.WalletSet{}, err
	}

	var (
		ws    walletset.WalletSet
		found bool
	)
	err := d.read(func(s *snapshot) error {
		ws, found = s.find(email)
		return nil
	})
	if err != nil {
		return walletset.WalletSet{}, err
	}
	if found {
		d.metrics.RecordHit()
		return ws, nil
	}

	created := false
	err = d.update(func(s *snapshot) (bool, error) {
		// Another caller may have created it between the two locks.
		if ws, found = s.find(email); found {
			return false, nil
		}

		gen, genErr := d.gen.Generate(email)
		if genErr != nil {
			return false, wderr.Wrap(genErr, "generating wallet set")
		}
		if s.hasAiraID(gen.AiraID) {
			if gen.AiraID, genErr = d.freshAiraID(s); genErr != nil {
				return false, wderr.Wrap(genErr, "generating wallet set")
			}
		}

		s.add(gen)
		ws = gen
		created = true
		return true, nil
	})
	if err != nil {
		return walletset.WalletSet{}, err
	}

	if created {
		d.metrics.RecordCreate()
		d.logger.Info("created wallet set for %s (%s)", email, ws.AiraID)
	} else {
		d.metrics.RecordHit()
	}
	return ws, nil
}

// Lookup returns the WalletSet stored for email. It never creates one.
func (d *Directory) Lookup(email string) (walletset.WalletSet, error) {
	if err := walletset.ValidateEmail(email); err != nil {
		return walletset.WalletSet{}, err
	}

	var (
		ws    walletset.WalletSet
		found bool
	)
	if err := d.read(func(s *snapshot) error {
		ws, found = s.find(email)
		return nil
	}); err != nil {
		return walletset.WalletSet{}, err
	}

	d.metrics.RecordLookup(found)
	if !found {
		return walletset.WalletSet{}, notFound(email)
	}
	return ws, nil
}

// ListAll returns every stored record in store order.
func (d *Directory) ListAll() ([]walletset.WalletSet, error) {
	var sets []walletset.WalletSet
	err := d.read(func(s *snapshot) error {
		sets = s.sets()
		return nil
	})
	return sets, err
}

// Delete removes the record for email and reports whether one existed.
// Deleting a missing email is not an error.
func (d *Directory) Delete(email string) (bool, error) {
	if err := walletset.ValidateEmail(email); err != nil {
		return false, err
	}

	removed := false
	err := d.update(func(s *snapshot) (bool, error) {
		removed = s.remove(email)
		return removed, nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		d.metrics.RecordDelete()
		d.logger.Info("deleted wallet set for %s", email)
	}
	return removed, nil
}

// Import inserts each set whose email is not stored yet. Existing records
// are never overwritten. Sets are validated before anything is written.
func (d *Directory) Import(sets []walletset.WalletSet) (added, skipped int, err error) {
	for i := range sets {
		if verr := validateImported(&sets[i]); verr != nil {
			return 0, 0, wderr.WithDetails(verr, map[string]string{
				"index": strconv.Itoa(i),
				"email": sets[i].Email,
			})
		}
	}

	err = d.update(func(s *snapshot) (bool, error) {
		for i := range sets {
			if _, found := s.find(sets[i].Email); found {
				skipped++
				continue
			}
			if sets[i].AiraID != "" && s.hasAiraID(sets[i].AiraID) {
				return false, wderr.WithDetails(wderr.ErrInvalidInput, map[string]string{
					"email":  sets[i].Email,
					"reason": "aira id already assigned to another record",
				})
			}
			s.add(sets[i])
			added++
		}
		return added > 0, nil
	})
	if err != nil {
		return 0, 0, err
	}

	d.logger.Info("imported %d wallet sets, skipped %d existing", added, skipped)
	return added, skipped, nil
}

// BackfillAiraIDs assigns an AIRA ID to every record stored without one
// and returns how many were assigned. Existing IDs never change.
func (d *Directory) BackfillAiraIDs() (int, error) {
	assigned := 0
	err := d.update(func(s *snapshot) (bool, error) {
		for _, e := range s.entries {
			if e.set == nil || e.set.AiraID != "" {
				continue
			}
			id, err := d.freshAiraID(s)
			if err != nil {
				return false, wderr.Wrap(err, "assigning aira id")
			}
			e.set.AiraID = id
			s.airaIDs[id] = struct{}{}
			assigned++
		}
		return assigned > 0, nil
	})
	if err != nil {
		return 0, err
	}

	d.metrics.RecordBackfill(assigned)
	if assigned > 0 {
		d.logger.Info("assigned aira ids to %d legacy records", assigned)
	}
	return assigned, nil
}

// Verify returns the malformed lines currently in the store.
func (d *Directory) Verify() ([]*CorruptRecordError, error) {
	var out []*CorruptRecordError
	err := d.read(func(s *snapshot) error {
		out = s.corrupt
		return nil
	})
	return out, err
}

// Stats reports record counts for the store.
func (d *Directory) Stats() (Stats, error) {
	st := Stats{Path: d.path}
	err := d.read(func(s *snapshot) error {
		st.Records = len(s.index)
		st.CorruptLines = len(s.corrupt)
		for _, e := range s.entries {
			if e.set != nil && e.set.AiraID == "" {
				st.MissingAiraID++
			}
		}
		return nil
	})
	return st, err
}

// read runs fn on a fresh snapshot under the shared locks.
func (d *Directory) read(fn func(*snapshot) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lock, err := fileutil.Lock(d.lockPath, false)
	if err != nil {
		return d.storageError("locking store", err)
	}
	defer d.unlock(lock)

	s, err := d.load()
	if err != nil {
		return err
	}
	return fn(s)
}

// update runs fn on a fresh snapshot under the exclusive locks and
// rewrites the store when fn reports a change.
func (d *Directory) update(fn func(*snapshot) (bool, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, err := fileutil.Lock(d.lockPath, true)
	if err != nil {
		return d.storageError("locking store", err)
	}
	defer d.unlock(lock)

	s, err := d.load()
	if err != nil {
		return err
	}

	changed, err := fn(s)
	if err != nil || !changed {
		return err
	}

	if err := fileutil.WriteAtomicFunc(d.path, storeFilePerm, s.encode); err != nil {
		return d.storageError("writing store", err)
	}
	d.logger.Debug("rewrote %s with %d records", d.path, len(s.index))
	return nil
}

func (d *Directory) load() (*snapshot, error) {
	//nolint:gosec // G304: store path is from validated config
	f, err := os.Open(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return newSnapshot(), nil
	}
	if err != nil {
		return nil, d.storageError("opening store", err)
	}
	defer func() { _ = f.Close() }()

	s, err := decodeStore(f)
	if err != nil {
		return nil, d.storageError("reading store", err)
	}

	d.reportCorrupt(s.corrupt)
	return s, nil
}

// reportCorrupt logs and counts the corrupt lines not seen on the
// previous load.
func (d *Directory) reportCorrupt(lines []*CorruptRecordError) {
	d.reportMu.Lock()
	defer d.reportMu.Unlock()

	if len(lines) == 0 && len(d.reported) == 0 {
		return
	}

	seen := make(map[string]int, len(lines))
	fresh := 0
	for _, cre := range lines {
		seen[cre.Text]++
		if seen[cre.Text] <= d.reported[cre.Text] {
			continue
		}
		fresh++
		d.logger.Error("%s: skipping record: %v", d.path, cre)
	}
	d.reported = seen
	if fresh > 0 {
		d.metrics.RecordCorruptLines(fresh)
	}
}

func (d *Directory) unlock(lock *fileutil.FileLock) {
	if err := lock.Unlock(); err != nil {
		d.logger.Error("%s: %v", d.lockPath, err)
	}
}

func (d *Directory) storageError(op string, err error) error {
	d.metrics.RecordStorageError()
	d.logger.Error("%s %s: %v", op, d.path, err)
	return wderr.WithCause(wderr.ErrStorage, fmt.Errorf("%s: %w", op, err))
}

// freshAiraID draws an AIRA ID not yet present in s.
func (d *Directory) freshAiraID(s *snapshot) (string, error) {
	for range maxAiraIDAttempts {
		id, err := walletset.NewAiraID(d.gen.Rand)
		if err != nil {
			return "", err
		}
		if !s.hasAiraID(id) {
			return id, nil
		}
	}
	return "", errAiraIDExhausted
}

func notFound(email string) error {
	return wderr.WithDetails(wderr.ErrWalletNotFound, map[string]string{"email": email})
}

// validateImported checks a record arriving from outside the generator.
func validateImported(ws *walletset.WalletSet) error {
	if err := walletset.ValidateEmail(ws.Email); err != nil {
		return err
	}
	line := FormatRecord(ws)
	if len(line) > maxLineBytes {
		return wderr.WithDetails(wderr.ErrInvalidInput, map[string]string{
			"reason": fmt.Sprintf("record exceeds %d bytes", maxLineBytes),
		})
	}
	if strings.ContainsAny(line, "\r\n") {
		return wderr.WithDetails(wderr.ErrInvalidInput, map[string]string{"reason": "record spans lines"})
	}
	if _, err := ParseRecord(line); err != nil {
		return wderr.WithCause(wderr.ErrInvalidInput, err)
	}
	return nil
}

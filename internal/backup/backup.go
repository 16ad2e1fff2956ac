package backup

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aira-payment/walletdir/internal/directory"
	"github.com/aira-payment/walletdir/internal/fileutil"
	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

const (
	// BackupExtension is the file extension for backups.
	BackupExtension = ".wdbak"

	// BackupDirPermissions is the permission mode for the backup directory.
	BackupDirPermissions = 0o750

	// BackupFilePermissions is the permission mode for backup files.
	BackupFilePermissions = 0o600

	filePrefix = "walletdir-"
)

// Store is what a backup reads from and restores into.
// *directory.Directory satisfies it.
type Store interface {
	ListAll() ([]walletset.WalletSet, error)
	Import(sets []walletset.WalletSet) (added, skipped int, err error)
}

// RestoreResult reports what a restore did.
type RestoreResult struct {
	Total   int `json:"total"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Service provides backup operations.
type Service struct {
	backupDir string
	store     Store
	now       func() time.Time
}

// NewService creates a new backup service.
func NewService(backupDir string, store Store) *Service {
	return &Service{
		backupDir: backupDir,
		store:     store,
		now:       time.Now,
	}
}

// Create snapshots every record into a new encrypted backup file.
// The password should be zeroed by the caller after this call returns.
func (s *Service) Create(password []byte) (*Backup, string, error) {
	sets, err := s.store.ListAll()
	if err != nil {
		return nil, "", fmt.Errorf("loading wallet sets: %w", err)
	}

	plaintext := encodeRecords(sets)
	defer zeroBytes(plaintext)

	encryptedData, err := encrypt(plaintext, string(password))
	if err != nil {
		return nil, "", fmt.Errorf("encrypting backup: %w", err)
	}

	backup := NewBackup(NewManifest(len(sets), s.now()), encryptedData)

	backupPath, err := s.writeBackup(backup)
	if err != nil {
		return nil, "", fmt.Errorf("writing backup: %w", err)
	}

	return backup, backupPath, nil
}

// Verify verifies a backup file's integrity without decrypting.
func (s *Service) Verify(backupPath string) (*Manifest, error) {
	backup, err := s.readBackup(backupPath)
	if err != nil {
		return nil, err
	}

	if err := backup.Validate(); err != nil {
		return nil, err
	}

	return &backup.Manifest, nil
}

// VerifyWithDecryption verifies a backup, decrypts it, and checks every
// record against the manifest.
// The password should be zeroed by the caller after this call returns.
func (s *Service) VerifyWithDecryption(backupPath string, password []byte) (*Manifest, error) {
	backup, sets, err := s.open(backupPath, password)
	if err != nil {
		return nil, err
	}
	if len(sets) != backup.Manifest.RecordCount {
		return nil, invalid(fmt.Sprintf("manifest lists %d records, snapshot holds %d",
			backup.Manifest.RecordCount, len(sets)))
	}
	return &backup.Manifest, nil
}

// Restore merges the records of a backup into the store. Emails already
// present keep their current record.
// The password should be zeroed by the caller after this call returns.
func (s *Service) Restore(backupPath string, password []byte) (*RestoreResult, error) {
	_, sets, err := s.open(backupPath, password)
	if err != nil {
		return nil, err
	}

	added, skipped, err := s.store.Import(sets)
	if err != nil {
		return nil, fmt.Errorf("importing wallet sets: %w", err)
	}

	return &RestoreResult{Total: len(sets), Added: added, Skipped: skipped}, nil
}

// List returns all backup files in the backup directory, oldest first.
func (s *Service) List() ([]string, error) {
	if err := os.MkdirAll(s.backupDir, BackupDirPermissions); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == BackupExtension {
			backups = append(backups, entry.Name())
		}
	}
	sort.Strings(backups)

	return backups, nil
}

// BackupPath returns the path to a backup file.
func (s *Service) BackupPath(filename string) string {
	return filepath.Join(s.backupDir, filename)
}

// open reads, validates, and decrypts a backup.
func (s *Service) open(backupPath string, password []byte) (*Backup, []walletset.WalletSet, error) {
	backup, err := s.readBackup(backupPath)
	if err != nil {
		return nil, nil, err
	}

	if validationErr := backup.Validate(); validationErr != nil {
		return nil, nil, validationErr
	}

	decrypted, err := decrypt(backup.EncryptedData, string(password))
	if err != nil {
		return nil, nil, wderr.WithCause(wderr.ErrDecryptionFailed, err)
	}
	defer zeroBytes(decrypted)

	sets, err := decodeRecords(decrypted)
	if err != nil {
		return nil, nil, err
	}
	return backup, sets, nil
}

// writeBackup writes a backup to the backup directory.
//
//nolint:funcorder // Keeping helper methods together
func (s *Service) writeBackup(backup *Backup) (string, error) {
	// Ensure directory exists
	if err := os.MkdirAll(s.backupDir, BackupDirPermissions); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	timestamp := backup.Manifest.CreatedAt.Format("2006-01-02-150405")
	backupPath := filepath.Join(s.backupDir, filePrefix+timestamp+BackupExtension)
	for n := 2; fileExists(backupPath); n++ {
		backupPath = filepath.Join(s.backupDir, filePrefix+timestamp+"-"+strconv.Itoa(n)+BackupExtension)
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing backup: %w", err)
	}

	if err := fileutil.WriteAtomic(backupPath, data, BackupFilePermissions); err != nil {
		return "", fmt.Errorf("writing backup file: %w", err)
	}

	return backupPath, nil
}

// readBackup reads a backup from a file.
//
//nolint:funcorder // Keeping helper methods together
func (s *Service) readBackup(path string) (*Backup, error) {
	// #nosec G304 -- path is from user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wderr.WithDetails(wderr.ErrBackupNotFound, map[string]string{"path": path})
		}
		return nil, fmt.Errorf("reading backup file: %w", err)
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, wderr.WithCause(wderr.ErrInvalidBackup, err)
	}

	return &backup, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// encodeRecords renders sets in the store line format.
func encodeRecords(sets []walletset.WalletSet) []byte {
	var buf bytes.Buffer
	for i := range sets {
		buf.WriteString(directory.FormatRecord(&sets[i]))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// decodeRecords parses a decrypted snapshot. Unlike the live store, a
// backup must be entirely well formed.
func decodeRecords(data []byte) ([]walletset.WalletSet, error) {
	var sets []walletset.WalletSet
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ws, err := directory.ParseRecord(line)
		if err != nil {
			return nil, wderr.WithDetails(wderr.ErrInvalidBackup, map[string]string{
				"line":   strconv.Itoa(lineNo),
				"reason": err.Error(),
			})
		}
		sets = append(sets, ws)
	}
	if err := scanner.Err(); err != nil {
		return nil, wderr.WithCause(wderr.ErrInvalidBackup, err)
	}
	return sets, nil
}

// Package backup writes and restores encrypted snapshots of the wallet
// store. A backup is a JSON envelope holding a manifest, the age-encrypted
// store lines, and a checksum of the ciphertext.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// BackupVersion is the current backup format version.
const BackupVersion = 1

// RecordFormat names the plaintext layout: one store line per record.
const RecordFormat = "walletdir-line-v1"

// Backup represents a complete store backup.
type Backup struct {
	// Version is the backup format version.
	Version int `json:"version"`

	// Manifest contains backup metadata.
	Manifest Manifest `json:"manifest"`

	// EncryptedData is the age-encrypted store snapshot.
	EncryptedData []byte `json:"encrypted_data"`

	// Checksum is the SHA256 hash of EncryptedData.
	Checksum string `json:"checksum"`
}

// Manifest contains metadata about the backup.
type Manifest struct {
	// CreatedAt is when the backup was created.
	CreatedAt time.Time `json:"created_at"`

	// RecordCount is the number of wallet sets in the snapshot.
	RecordCount int `json:"record_count"`

	// RecordFormat describes the plaintext layout.
	RecordFormat string `json:"record_format"`

	// EncryptionMethod describes the encryption used.
	EncryptionMethod string `json:"encryption_method"`

	// HostInfo contains optional host information.
	HostInfo string `json:"host_info,omitempty"`
}

// NewManifest creates a new backup manifest.
func NewManifest(recordCount int, createdAt time.Time) Manifest {
	host, _ := os.Hostname()
	return Manifest{
		CreatedAt:        createdAt.UTC(),
		RecordCount:      recordCount,
		RecordFormat:     RecordFormat,
		EncryptionMethod: "age-scrypt",
		HostInfo:         host,
	}
}

// CalculateChecksum computes the SHA256 checksum of data.
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyChecksum verifies that data matches the expected checksum.
func VerifyChecksum(data []byte, expected string) error {
	actual := CalculateChecksum(data)
	if actual != expected {
		return wderr.WithDetails(wderr.ErrBackupCorrupted, map[string]string{
			"expected": expected,
			"actual":   actual,
		})
	}
	return nil
}

// NewBackup creates a new backup with the given manifest and encrypted data.
func NewBackup(manifest Manifest, encryptedData []byte) *Backup {
	return &Backup{
		Version:       BackupVersion,
		Manifest:      manifest,
		EncryptedData: encryptedData,
		Checksum:      CalculateChecksum(encryptedData),
	}
}

// Validate checks the backup for consistency.
func (b *Backup) Validate() error {
	if b.Version != BackupVersion {
		return invalid(fmt.Sprintf("unsupported version %d", b.Version))
	}

	if b.Manifest.RecordFormat != RecordFormat {
		return invalid(fmt.Sprintf("unsupported record format %q", b.Manifest.RecordFormat))
	}

	if b.Manifest.RecordCount < 0 {
		return invalid("negative record count")
	}

	if len(b.EncryptedData) == 0 {
		return invalid("no encrypted data")
	}

	return VerifyChecksum(b.EncryptedData, b.Checksum)
}

func invalid(reason string) error {
	return wderr.WithDetails(wderr.ErrInvalidBackup, map[string]string{"reason": reason})
}

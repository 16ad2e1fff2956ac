package backup

import (
	"bytes"
	"fmt"
	"io"
	"sync/atomic"

	"filippo.io/age"
)

// defaultScryptWorkFactor is age's own default (log2 of the scrypt N).
const defaultScryptWorkFactor = 18

//nolint:gochecknoglobals // Tunable for tests, read on every encryption
var scryptWorkFactor atomic.Int32

// SetScryptWorkFactor overrides the scrypt cost used for new backups.
// Tests lower it; production code should leave the default.
func SetScryptWorkFactor(logN int) {
	scryptWorkFactor.Store(int32(logN)) //nolint:gosec // small positive value
}

func workFactor() int {
	if n := scryptWorkFactor.Load(); n > 0 {
		return int(n)
	}
	return defaultScryptWorkFactor
}

// encrypt encrypts plaintext using age with a password-based recipient.
func encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(workFactor())

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// decrypt decrypts ciphertext using age with a password-based identity.
func decrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}

	return plaintext, nil
}

// zeroBytes overwrites b. Mnemonics pass through these buffers.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

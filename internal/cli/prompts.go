package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// minPasswordLength is the shortest backup password accepted.
const minPasswordLength = 8

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // Replaced in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirm
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // G115: Fd() fits in int
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter backup password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLength {
		zero(password)
		return nil, wderr.WithSuggestion(
			wderr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		zero(password)
		return nil, err
	}
	defer zero(confirm)

	if string(password) != string(confirm) {
		zero(password)
		return nil, wderr.WithSuggestion(wderr.ErrInvalidInput, "passwords do not match")
	}

	return password, nil
}

// promptConfirm asks a yes/no question on stderr. Anything but y/yes is no.
func promptConfirm(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// zero overwrites a secret buffer.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

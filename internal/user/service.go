// Package user implements registration and authentication on top of a
// credential store: deterministic name/password validation, bcrypt hashing,
// and constant-time hash verification.
package user

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"tcpchat/internal/protocol"
	"tcpchat/internal/store"
)

const (
	nameMinLen = 7
	nameMaxLen = 32

	passwordMinLen = 8
	passwordMaxLen = 32
)

// Service validates and persists user credentials.
type Service struct {
	store store.CredentialStore
}

// NewService creates a Service backed by db.
func NewService(db store.CredentialStore) *Service {
	return &Service{store: db}
}

// Register creates a new account.  Checks run in a fixed order: name
// validity, name uniqueness, password validity, hash, insert.  Validation
// failures are returned as *protocol.RegistrationError; anything else is a
// store failure.
func (s *Service) Register(name, password string) error {
	if err := validateName(name); err != nil {
		return protocol.IncorrectName(err)
	}

	existing, err := s.store.GetUserByName(name)
	if err != nil {
		return fmt.Errorf("user: lookup %q: %w", name, err)
	}
	if existing != nil {
		return protocol.ErrNameAlreadyInUse()
	}

	if err := validatePassword(password); err != nil {
		return protocol.IncorrectPassword(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("user: hash password: %w", err)
	}

	err = s.store.AddNewUser(store.UserCredentials{
		Name:         name,
		PasswordHash: string(hash),
	})
	if errors.Is(err, store.ErrNameTaken) {
		// Lost the race against a concurrent registration of the same name.
		return protocol.ErrNameAlreadyInUse()
	}
	if err != nil {
		return fmt.Errorf("user: insert %q: %w", name, err)
	}
	return nil
}

// Authenticate verifies name/password against the stored hash.  An unknown
// name and a wrong password both yield WrongNameOrPassword so the response
// does not reveal whether the account exists.
func (s *Service) Authenticate(name, password string) error {
	creds, err := s.store.GetUserByName(name)
	if err != nil {
		return fmt.Errorf("user: lookup %q: %w", name, err)
	}
	if creds == nil {
		return wrongNameOrPassword()
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) != nil {
		return wrongNameOrPassword()
	}
	return nil
}

func wrongNameOrPassword() error {
	e := protocol.WrongNameOrPassword
	return &e
}

// validateName enforces the user name rules: 7..=32 bytes, ASCII
// alphanumerics plus '.' and '_', and no two consecutive dots or
// underscores.  Mixed "._" or "_." runs are fine, as are leading and
// trailing symbols.
func validateName(name string) *protocol.UserNameError {
	if len(name) < nameMinLen || len(name) > nameMaxLen {
		return protocol.NameLengthError(nameMinLen, nameMaxLen)
	}

	var wasDot, wasUnderscore bool
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isASCIIAlphanumeric(c) {
			wasDot = false
			wasUnderscore = false
			continue
		}

		switch c {
		case '.':
			if wasDot {
				return &protocol.UserNameError{Kind: protocol.NameMultipleDots}
			}
			wasDot, wasUnderscore = true, false
		case '_':
			if wasUnderscore {
				return &protocol.UserNameError{Kind: protocol.NameMultipleUnderscores}
			}
			wasDot, wasUnderscore = false, true
		default:
			return &protocol.UserNameError{Kind: protocol.NameUnallowedCharacter}
		}
	}
	return nil
}

// validatePassword enforces the password rules: 8..=32 bytes, every byte an
// ASCII graphic character (0x21..=0x7E).  Space is not graphic and is
// rejected.
func validatePassword(password string) *protocol.PasswordError {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return protocol.PasswordLengthError(passwordMinLen, passwordMaxLen)
	}

	for i := 0; i < len(password); i++ {
		if c := password[i]; c < 0x21 || c > 0x7e {
			return &protocol.PasswordError{Kind: protocol.PasswordUnallowedCharacter}
		}
	}
	return nil
}

func isASCIIAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

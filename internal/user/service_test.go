package user

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tcpchat/internal/protocol"
	"tcpchat/internal/store"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind protocol.UserNameErrorKind // empty means valid
	}{
		{"simple", "alice_01", ""},
		{"minimum length", "abcdefg", ""},
		{"maximum length", strings.Repeat("a", 32), ""},
		{"dots and underscores interleaved", "a._.b_.c", ""},
		{"leading dot allowed", ".alice99", ""},
		{"trailing underscore allowed", "alice99_", ""},
		{"consecutive underscores separated by letters", "bob_____02", protocol.NameMultipleUnderscores},
		{"too short", "alice1", protocol.NameIncorrectLength},
		{"too long", strings.Repeat("a", 33), protocol.NameIncorrectLength},
		{"empty", "", protocol.NameIncorrectLength},
		{"consecutive dots", "bob..xx", protocol.NameMultipleDots},
		{"consecutive underscores", "bob__xx", protocol.NameMultipleUnderscores},
		{"dot resets underscore run", "a_._b12", ""},
		{"space", "alice 01", protocol.NameUnallowedCharacter},
		{"dash", "alice-01", protocol.NameUnallowedCharacter},
		{"non-ascii", "alicé_01", protocol.NameUnallowedCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.input)
			if tt.wantKind == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantKind, err.Kind)
			if tt.wantKind == protocol.NameIncorrectLength {
				assert.Equal(t, uint32(7), err.Min)
				assert.Equal(t, uint32(32), err.Max)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind protocol.PasswordErrorKind // empty means valid
	}{
		{"simple", "Secret!9", ""},
		{"minimum length", "12345678", ""},
		{"maximum length", strings.Repeat("x", 32), ""},
		{"graphic boundary low", "!!!!!!!!", ""},
		{"graphic boundary high", "~~~~~~~~", ""},
		{"too short", "abc", protocol.PasswordIncorrectLength},
		{"too long", strings.Repeat("x", 33), protocol.PasswordIncorrectLength},
		{"space is not graphic", "pass word1", protocol.PasswordUnallowedCharacter},
		{"control character", "pass\tword1", protocol.PasswordUnallowedCharacter},
		{"non-ascii", "pässword1", protocol.PasswordUnallowedCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.input)
			if tt.wantKind == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantKind, err.Kind)
			if tt.wantKind == protocol.PasswordIncorrectLength {
				assert.Equal(t, uint32(8), err.Min)
				assert.Equal(t, uint32(32), err.Max)
			}
		})
	}
}

// recordingStore wraps a MemoryStore and counts calls, so tests can assert
// on the order of registration checks.
type recordingStore struct {
	inner   *store.MemoryStore
	lookups int
	inserts int
}

func (s *recordingStore) GetUserByName(name string) (*store.UserCredentials, error) {
	s.lookups++
	return s.inner.GetUserByName(name)
}

func (s *recordingStore) AddNewUser(creds store.UserCredentials) error {
	s.inserts++
	return s.inner.AddNewUser(creds)
}

func TestRegisterInvalidNameSkipsStore(t *testing.T) {
	db := &recordingStore{inner: store.NewMemoryStore()}
	svc := NewService(db)

	err := svc.Register("bob..xx", "Secret!9")

	var regErr *protocol.RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.NotNil(t, regErr.IncorrectName)
	assert.Equal(t, protocol.NameMultipleDots, regErr.IncorrectName.Kind)
	assert.Zero(t, db.lookups, "name validation must precede the uniqueness lookup")
	assert.Zero(t, db.inserts)
}

func TestRegisterUniquenessPrecedesPasswordCheck(t *testing.T) {
	db := &recordingStore{inner: store.NewMemoryStore()}
	svc := NewService(db)

	// Valid name, invalid password: the lookup must already have happened.
	err := svc.Register("alice_01", "abc")

	var regErr *protocol.RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.NotNil(t, regErr.IncorrectPassword)
	assert.Equal(t, protocol.PasswordIncorrectLength, regErr.IncorrectPassword.Kind)
	assert.Equal(t, 1, db.lookups)
	assert.Zero(t, db.inserts)
}

func TestRegisterThenAuthenticate(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	require.NoError(t, svc.Register("alice_01", "Secret!9"))
	assert.NoError(t, svc.Authenticate("alice_01", "Secret!9"))
}

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	db := store.NewMemoryStore()
	svc := NewService(db)

	require.NoError(t, svc.Register("alice_01", "Secret!9"))

	creds, err := db.GetUserByName("alice_01")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.NotContains(t, creds.PasswordHash, "Secret!9")
	assert.True(t, strings.HasPrefix(creds.PasswordHash, "$2"), "expected a bcrypt hash")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte("Secret!9")))
}

func TestRegisterDuplicateName(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	require.NoError(t, svc.Register("alice_01", "Secret!9"))

	err := svc.Register("alice_01", "Other!pw9")

	var regErr *protocol.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.True(t, regErr.NameAlreadyInUse)
}

// raceStore simulates losing an insert race: the lookup sees no user but the
// insert hits the uniqueness constraint.
type raceStore struct{}

func (raceStore) GetUserByName(string) (*store.UserCredentials, error) { return nil, nil }
func (raceStore) AddNewUser(store.UserCredentials) error               { return store.ErrNameTaken }

func TestRegisterLostInsertRace(t *testing.T) {
	svc := NewService(raceStore{})

	err := svc.Register("alice_01", "Secret!9")

	var regErr *protocol.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.True(t, regErr.NameAlreadyInUse)
}

func TestAuthenticateUnknownAndWrongPasswordIndistinguishable(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	require.NoError(t, svc.Register("alice_01", "Secret!9"))

	unknownErr := svc.Authenticate("ghost_99", "whatever1")
	wrongErr := svc.Authenticate("alice_01", "wrong!pw9")

	var e1, e2 *protocol.AuthenticationError
	require.ErrorAs(t, unknownErr, &e1)
	require.ErrorAs(t, wrongErr, &e2)
	assert.Equal(t, protocol.WrongNameOrPassword, *e1)
	assert.Equal(t, protocol.WrongNameOrPassword, *e2)
	assert.Equal(t, e1.Error(), e2.Error())
}

// failingStore returns an I/O error from every call.
type failingStore struct{}

func (failingStore) GetUserByName(string) (*store.UserCredentials, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) AddNewUser(store.UserCredentials) error {
	return errors.New("disk on fire")
}

func TestStoreFailuresAreNotValidationErrors(t *testing.T) {
	svc := NewService(failingStore{})

	regErrAny := svc.Register("alice_01", "Secret!9")
	require.Error(t, regErrAny)
	var regErr *protocol.RegistrationError
	assert.False(t, errors.As(regErrAny, &regErr))

	authErrAny := svc.Authenticate("alice_01", "Secret!9")
	require.Error(t, authErrAny)
	var authErr *protocol.AuthenticationError
	assert.False(t, errors.As(authErrAny, &authErr))
}

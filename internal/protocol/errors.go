package protocol

import (
	"encoding/json"
	"fmt"
)

// AuthenticationError is the error carried in a failed AuthenticationResult.
// The single variant deliberately covers both an unknown name and a wrong
// password so a failed login does not reveal whether the account exists.
type AuthenticationError string

// WrongNameOrPassword is the only authentication failure a client ever sees.
const WrongNameOrPassword AuthenticationError = "WrongNameOrPassword"

func (e AuthenticationError) Error() string {
	return "wrong user name or password"
}

func (e *AuthenticationError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if AuthenticationError(s) != WrongNameOrPassword {
		return fmt.Errorf("protocol: unknown authentication error %q", s)
	}
	*e = WrongNameOrPassword
	return nil
}

// UserNameErrorKind enumerates the name validation failures.
type UserNameErrorKind string

const (
	NameIncorrectLength     UserNameErrorKind = "IncorrectLength"
	NameMultipleDots        UserNameErrorKind = "MultipleDots"
	NameMultipleUnderscores UserNameErrorKind = "MultipleUnderscores"
	NameUnallowedCharacter  UserNameErrorKind = "UnallowedCharacter"
)

// UserNameError describes why a user name failed validation.  Min and Max
// are populated only for NameIncorrectLength.
type UserNameError struct {
	Kind UserNameErrorKind
	Min  uint32
	Max  uint32
}

// NameLengthError builds an IncorrectLength name error with the allowed range.
func NameLengthError(min, max uint32) *UserNameError {
	return &UserNameError{Kind: NameIncorrectLength, Min: min, Max: max}
}

func (e *UserNameError) Error() string {
	switch e.Kind {
	case NameIncorrectLength:
		return fmt.Sprintf("incorrect length, should be between %d and %d", e.Min, e.Max)
	case NameMultipleDots:
		return "cannot use multiple dots in succession"
	case NameMultipleUnderscores:
		return "cannot use multiple underscores in succession"
	default:
		return "unallowed character, allowed only alphanumeric ASCII symbols"
	}
}

func (e UserNameError) MarshalJSON() ([]byte, error) {
	if e.Kind == NameIncorrectLength {
		return json.Marshal(map[string][2]uint32{string(e.Kind): {e.Min, e.Max}})
	}
	return json.Marshal(string(e.Kind))
}

func (e *UserNameError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch kind := UserNameErrorKind(s); kind {
		case NameMultipleDots, NameMultipleUnderscores, NameUnallowedCharacter:
			*e = UserNameError{Kind: kind}
			return nil
		}
		return fmt.Errorf("protocol: unknown user name error %q", s)
	}

	variant, raw, err := splitVariant(data)
	if err != nil {
		return err
	}
	if UserNameErrorKind(variant) != NameIncorrectLength {
		return fmt.Errorf("protocol: unknown user name error %q", variant)
	}
	var bounds [2]uint32
	if err := json.Unmarshal(raw, &bounds); err != nil {
		return err
	}
	*e = UserNameError{Kind: NameIncorrectLength, Min: bounds[0], Max: bounds[1]}
	return nil
}

// PasswordErrorKind enumerates the password validation failures.
type PasswordErrorKind string

const (
	PasswordIncorrectLength    PasswordErrorKind = "IncorrectLength"
	PasswordUnallowedCharacter PasswordErrorKind = "UnallowedCharacter"
)

// PasswordError describes why a password failed validation.  Min and Max are
// populated only for PasswordIncorrectLength.
type PasswordError struct {
	Kind PasswordErrorKind
	Min  uint32
	Max  uint32
}

// PasswordLengthError builds an IncorrectLength password error with the
// allowed range.
func PasswordLengthError(min, max uint32) *PasswordError {
	return &PasswordError{Kind: PasswordIncorrectLength, Min: min, Max: max}
}

func (e *PasswordError) Error() string {
	if e.Kind == PasswordIncorrectLength {
		return fmt.Sprintf("incorrect length, should be between %d and %d", e.Min, e.Max)
	}
	return "unallowed character, allowed only graphic ASCII symbols"
}

func (e PasswordError) MarshalJSON() ([]byte, error) {
	if e.Kind == PasswordIncorrectLength {
		return json.Marshal(map[string][2]uint32{string(e.Kind): {e.Min, e.Max}})
	}
	return json.Marshal(string(e.Kind))
}

func (e *PasswordError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if PasswordErrorKind(s) != PasswordUnallowedCharacter {
			return fmt.Errorf("protocol: unknown password error %q", s)
		}
		*e = PasswordError{Kind: PasswordUnallowedCharacter}
		return nil
	}

	variant, raw, err := splitVariant(data)
	if err != nil {
		return err
	}
	if PasswordErrorKind(variant) != PasswordIncorrectLength {
		return fmt.Errorf("protocol: unknown password error %q", variant)
	}
	var bounds [2]uint32
	if err := json.Unmarshal(raw, &bounds); err != nil {
		return err
	}
	*e = PasswordError{Kind: PasswordIncorrectLength, Min: bounds[0], Max: bounds[1]}
	return nil
}

// RegistrationError is the error carried in a failed RegistrationResult.
// Exactly one of the fields is set.
type RegistrationError struct {
	IncorrectName     *UserNameError
	IncorrectPassword *PasswordError
	NameAlreadyInUse  bool
}

// IncorrectName wraps a name validation failure.
func IncorrectName(e *UserNameError) *RegistrationError {
	return &RegistrationError{IncorrectName: e}
}

// IncorrectPassword wraps a password validation failure.
func IncorrectPassword(e *PasswordError) *RegistrationError {
	return &RegistrationError{IncorrectPassword: e}
}

// ErrNameAlreadyInUse reports a uniqueness conflict.
func ErrNameAlreadyInUse() *RegistrationError {
	return &RegistrationError{NameAlreadyInUse: true}
}

func (e *RegistrationError) Error() string {
	switch {
	case e.IncorrectName != nil:
		return fmt.Sprintf("user name error: %s", e.IncorrectName.Error())
	case e.IncorrectPassword != nil:
		return fmt.Sprintf("password error: %s", e.IncorrectPassword.Error())
	default:
		return "name is already taken"
	}
}

func (e RegistrationError) MarshalJSON() ([]byte, error) {
	switch {
	case e.IncorrectName != nil:
		return json.Marshal(map[string]*UserNameError{"IncorrectName": e.IncorrectName})
	case e.IncorrectPassword != nil:
		return json.Marshal(map[string]*PasswordError{"IncorrectPassword": e.IncorrectPassword})
	default:
		return json.Marshal("NameAlreadyInUse")
	}
}

func (e *RegistrationError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "NameAlreadyInUse" {
			return fmt.Errorf("protocol: unknown registration error %q", s)
		}
		*e = RegistrationError{NameAlreadyInUse: true}
		return nil
	}

	variant, raw, err := splitVariant(data)
	if err != nil {
		return err
	}
	*e = RegistrationError{}
	switch variant {
	case "IncorrectName":
		e.IncorrectName = new(UserNameError)
		return json.Unmarshal(raw, e.IncorrectName)
	case "IncorrectPassword":
		e.IncorrectPassword = new(PasswordError)
		return json.Unmarshal(raw, e.IncorrectPassword)
	}
	return fmt.Errorf("protocol: unknown registration error %q", variant)
}

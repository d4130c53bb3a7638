package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "authentication",
			req:  NewAuthenticationRequest("alice_01", "Secret!9"),
			want: `{"Authentication":{"user_credentials_raw":{"name":"alice_01","password":"Secret!9"}}}`,
		},
		{
			name: "registration",
			req:  NewRegistrationRequest("bob_____02", "hunter22"),
			want: `{"Registration":{"user_credentials_raw":{"name":"bob_____02","password":"hunter22"}}}`,
		},
		{
			name: "message",
			req:  NewMessageRequest("hi"),
			want: `{"Message":{"message":"hi"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Request
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.req, back)
		})
	}
}

func TestRequestUnmarshalRejectsUnknown(t *testing.T) {
	var req Request
	assert.Error(t, json.Unmarshal([]byte(`{"Teleport":{"to":"nowhere"}}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"Message":{"message":"a"},"Extra":1}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`"Message"`), &req))
}

func TestRequestMarshalEmpty(t *testing.T) {
	_, err := json.Marshal(Request{})
	assert.Error(t, err)
}

func TestResponseMarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "authentication ok",
			resp: Response{AuthenticationResult: &AuthenticationResult{Result: true}},
			want: `{"AuthenticationResult":{"result":true,"error":null}}`,
		},
		{
			name: "authentication rejected",
			resp: Response{AuthenticationResult: &AuthenticationResult{
				Result: false,
				Error:  authErr(),
			}},
			want: `{"AuthenticationResult":{"result":false,"error":"WrongNameOrPassword"}}`,
		},
		{
			name: "registration ok",
			resp: Response{RegistrationResult: &RegistrationResult{Result: true}},
			want: `{"RegistrationResult":{"result":true,"error":null}}`,
		},
		{
			name: "registration name taken",
			resp: Response{RegistrationResult: &RegistrationResult{
				Result: false,
				Error:  ErrNameAlreadyInUse(),
			}},
			want: `{"RegistrationResult":{"result":false,"error":"NameAlreadyInUse"}}`,
		},
		{
			name: "registration short password",
			resp: Response{RegistrationResult: &RegistrationResult{
				Result: false,
				Error:  IncorrectPassword(PasswordLengthError(8, 32)),
			}},
			want: `{"RegistrationResult":{"result":false,"error":{"IncorrectPassword":{"IncorrectLength":[8,32]}}}}`,
		},
		{
			name: "registration consecutive dots",
			resp: Response{RegistrationResult: &RegistrationResult{
				Result: false,
				Error:  IncorrectName(&UserNameError{Kind: NameMultipleDots}),
			}},
			want: `{"RegistrationResult":{"result":false,"error":{"IncorrectName":"MultipleDots"}}}`,
		},
		{
			name: "chat message",
			resp: Response{Message: &ChatMessage{UserName: "alice_01", Message: "hi"}},
			want: `{"Message":{"user_name":"alice_01","message":"hi"}}`,
		},
		{
			name: "connection notice",
			resp: Response{Connection: &ConnectionNotice{UserName: "bob_____02", IsConnected: true}},
			want: `{"Connection":{"user_name":"bob_____02","is_connected":true}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Response
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.resp, back)
		})
	}
}

func TestUserNameErrorJSON(t *testing.T) {
	tests := []struct {
		err  *UserNameError
		want string
	}{
		{NameLengthError(7, 32), `{"IncorrectLength":[7,32]}`},
		{&UserNameError{Kind: NameMultipleDots}, `"MultipleDots"`},
		{&UserNameError{Kind: NameMultipleUnderscores}, `"MultipleUnderscores"`},
		{&UserNameError{Kind: NameUnallowedCharacter}, `"UnallowedCharacter"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.err)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(data))

		var back UserNameError
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, *tt.err, back)
	}
}

func TestErrorMessages(t *testing.T) {
	e := WrongNameOrPassword
	assert.Equal(t, "wrong user name or password", e.Error())

	assert.Equal(t,
		"user name error: incorrect length, should be between 7 and 32",
		IncorrectName(NameLengthError(7, 32)).Error())
	assert.Equal(t,
		"password error: unallowed character, allowed only graphic ASCII symbols",
		IncorrectPassword(&PasswordError{Kind: PasswordUnallowedCharacter}).Error())
	assert.Equal(t, "name is already taken", ErrNameAlreadyInUse().Error())
}

func TestUnknownErrorVariantsRejected(t *testing.T) {
	var authE AuthenticationError
	assert.Error(t, json.Unmarshal([]byte(`"SomethingElse"`), &authE))

	var nameE UserNameError
	assert.Error(t, json.Unmarshal([]byte(`"TooShiny"`), &nameE))
	assert.Error(t, json.Unmarshal([]byte(`{"Bogus":[1,2]}`), &nameE))

	var regE RegistrationError
	assert.Error(t, json.Unmarshal([]byte(`"NotARealVariant"`), &regE))
	assert.Error(t, json.Unmarshal([]byte(`{"IncorrectShoe":"Laces"}`), &regE))
}

func authErr() *AuthenticationError {
	e := WrongNameOrPassword
	return &e
}

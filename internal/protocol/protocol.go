// Package protocol defines the wire format for all client-server
// communication.  Every message travels as a length-prefixed frame (see
// frame.go) whose payload is a JSON object with exactly one key: the name of
// the request or response variant it carries.
//
//	{"Authentication":{"user_credentials_raw":{"name":"alice_01","password":"Secret!9"}}}
//	{"Message":{"message":"hi"}}
//
// Variants without fields encode as a bare string, so the error enums nest
// as either strings or single-key objects:
//
//	{"RegistrationResult":{"result":false,"error":"NameAlreadyInUse"}}
//	{"RegistrationResult":{"result":false,"error":{"IncorrectPassword":{"IncorrectLength":[8,32]}}}}
package protocol

import (
	"encoding/json"
	"fmt"
)

// Credentials is the raw name/password pair supplied by a client.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AuthPayload wraps Credentials for both Authentication and Registration
// requests.
type AuthPayload struct {
	Credentials Credentials `json:"user_credentials_raw"`
}

// MessagePayload carries a user's chat message.
type MessagePayload struct {
	Message string `json:"message"`
}

// Request is the client-to-server union.  Exactly one field is non-nil.
type Request struct {
	Authentication *AuthPayload
	Registration   *AuthPayload
	Message        *MessagePayload
}

// NewAuthenticationRequest builds an Authentication request.
func NewAuthenticationRequest(name, password string) Request {
	return Request{Authentication: &AuthPayload{Credentials{Name: name, Password: password}}}
}

// NewRegistrationRequest builds a Registration request.
func NewRegistrationRequest(name, password string) Request {
	return Request{Registration: &AuthPayload{Credentials{Name: name, Password: password}}}
}

// NewMessageRequest builds a Message request.
func NewMessageRequest(text string) Request {
	return Request{Message: &MessagePayload{Message: text}}
}

func (r Request) MarshalJSON() ([]byte, error) {
	switch {
	case r.Authentication != nil:
		return json.Marshal(map[string]*AuthPayload{"Authentication": r.Authentication})
	case r.Registration != nil:
		return json.Marshal(map[string]*AuthPayload{"Registration": r.Registration})
	case r.Message != nil:
		return json.Marshal(map[string]*MessagePayload{"Message": r.Message})
	}
	return nil, fmt.Errorf("protocol: request has no variant set")
}

func (r *Request) UnmarshalJSON(data []byte) error {
	variant, raw, err := splitVariant(data)
	if err != nil {
		return err
	}
	*r = Request{}
	switch variant {
	case "Authentication":
		r.Authentication = new(AuthPayload)
		return json.Unmarshal(raw, r.Authentication)
	case "Registration":
		r.Registration = new(AuthPayload)
		return json.Unmarshal(raw, r.Registration)
	case "Message":
		r.Message = new(MessagePayload)
		return json.Unmarshal(raw, r.Message)
	}
	return fmt.Errorf("protocol: unknown request variant %q", variant)
}

// AuthenticationResult reports the outcome of an Authentication request.
type AuthenticationResult struct {
	Result bool                 `json:"result"`
	Error  *AuthenticationError `json:"error"`
}

// RegistrationResult reports the outcome of a Registration request.
type RegistrationResult struct {
	Result bool               `json:"result"`
	Error  *RegistrationError `json:"error"`
}

// ChatMessage is a relayed chat message, stamped with the sender's name.
type ChatMessage struct {
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

// ConnectionNotice announces that a named user joined or left the chat.
type ConnectionNotice struct {
	UserName    string `json:"user_name"`
	IsConnected bool   `json:"is_connected"`
}

// Response is the server-to-client union.  Exactly one field is non-nil.
type Response struct {
	AuthenticationResult *AuthenticationResult
	RegistrationResult   *RegistrationResult
	Message              *ChatMessage
	Connection           *ConnectionNotice
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch {
	case r.AuthenticationResult != nil:
		return json.Marshal(map[string]*AuthenticationResult{"AuthenticationResult": r.AuthenticationResult})
	case r.RegistrationResult != nil:
		return json.Marshal(map[string]*RegistrationResult{"RegistrationResult": r.RegistrationResult})
	case r.Message != nil:
		return json.Marshal(map[string]*ChatMessage{"Message": r.Message})
	case r.Connection != nil:
		return json.Marshal(map[string]*ConnectionNotice{"Connection": r.Connection})
	}
	return nil, fmt.Errorf("protocol: response has no variant set")
}

func (r *Response) UnmarshalJSON(data []byte) error {
	variant, raw, err := splitVariant(data)
	if err != nil {
		return err
	}
	*r = Response{}
	switch variant {
	case "AuthenticationResult":
		r.AuthenticationResult = new(AuthenticationResult)
		return json.Unmarshal(raw, r.AuthenticationResult)
	case "RegistrationResult":
		r.RegistrationResult = new(RegistrationResult)
		return json.Unmarshal(raw, r.RegistrationResult)
	case "Message":
		r.Message = new(ChatMessage)
		return json.Unmarshal(raw, r.Message)
	case "Connection":
		r.Connection = new(ConnectionNotice)
		return json.Unmarshal(raw, r.Connection)
	}
	return fmt.Errorf("protocol: unknown response variant %q", variant)
}

// splitVariant decodes a single-key JSON object and returns the key and the
// raw value under it.
func splitVariant(data []byte) (string, json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, err
	}
	if len(m) != 1 {
		return "", nil, fmt.Errorf("protocol: expected a single-key object, got %d keys", len(m))
	}
	for variant, raw := range m {
		return variant, raw, nil
	}
	return "", nil, nil // unreachable
}

// Package chat holds the per-connection session state machine.  It is a
// pure command generator: events come in from the transport
// (connect/message/disconnect), commands go back out, and all network
// effects happen in the transport.  That one-way dependency is what keeps
// the connection table and the session table from owning each other.
package chat

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tcpchat/internal/protocol"
	"tcpchat/internal/user"
)

// session is one connection's chat state.  name is set iff authenticated,
// and a session never transitions back to unauthenticated.
type session struct {
	authenticated bool
	name          string
}

// Logic maps connection events to response commands.  A single mutex
// serialises access to the session table; it is held only while the command
// list for one event is computed, never across a write.
type Logic struct {
	svc *user.Service
	log *logrus.Logger

	mu    sync.Mutex
	users map[string]*session
}

// NewLogic creates the session logic on top of svc.
func NewLogic(svc *user.Service, log *logrus.Logger) *Logic {
	return &Logic{
		svc:   svc,
		log:   log,
		users: make(map[string]*session),
	}
}

// OnUserConnect registers a fresh unauthenticated session for id.
func (l *Logic) OnUserConnect(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.users[id] = &session{}
	l.log.WithField("conn_id", id).Info("user connected")
}

// OnUserDisconnect removes the session for id.  If the user was
// authenticated, everyone still connected is told they left.
func (l *Logic) OnUserDisconnect(id string) []Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	sess, ok := l.users[id]
	if !ok {
		return nil
	}
	delete(l.users, id)

	if !sess.authenticated {
		l.log.WithField("conn_id", id).Info("user disconnected")
		return nil
	}

	l.log.WithFields(logrus.Fields{"conn_id": id, "user": sess.name}).Info("user disconnected")

	payload, _ := json.Marshal(protocol.Response{
		Connection: &protocol.ConnectionNotice{UserName: sess.name, IsConnected: false},
	})
	return []Command{SendToAll{Payload: payload}}
}

// OnUserMessage decodes one inbound frame and dispatches it against the
// session's state.  Undecodable payloads are dropped without commands.
func (l *Logic) OnUserMessage(id string, payload []byte) []Command {
	var req protocol.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		l.log.WithField("conn_id", id).Debug("dropping undecodable request")
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sess, ok := l.users[id]
	if !ok {
		return nil
	}

	if sess.authenticated {
		if req.Message == nil {
			// Authentication and Registration are meaningless once
			// authenticated; drop them.
			return nil
		}
		return l.relayMessage(id, sess, req.Message.Message)
	}

	switch {
	case req.Authentication != nil:
		return l.authenticate(id, sess, req.Authentication.Credentials)
	case req.Registration != nil:
		return l.register(id, req.Registration.Credentials)
	default:
		// Chat messages from unauthenticated connections are dropped.
		return nil
	}
}

// relayMessage fans a chat message out to every other authenticated user.
func (l *Logic) relayMessage(id string, sess *session, text string) []Command {
	l.log.WithFields(logrus.Fields{"conn_id": id, "user": sess.name}).Info("relaying message")

	payload, _ := json.Marshal(protocol.Response{
		Message: &protocol.ChatMessage{UserName: sess.name, Message: text},
	})
	return []Command{SendToSome{IDs: l.otherAuthenticated(id), Payload: payload}}
}

func (l *Logic) authenticate(id string, sess *session, creds protocol.Credentials) []Command {
	if err := l.svc.Authenticate(creds.Name, creds.Password); err != nil {
		result := protocol.AuthenticationResult{Result: false}

		var authErr *protocol.AuthenticationError
		if errors.As(err, &authErr) {
			result.Error = authErr
			l.log.WithFields(logrus.Fields{"conn_id": id, "user": creds.Name}).
				Info("authentication rejected")
		} else {
			l.log.WithFields(logrus.Fields{"conn_id": id, "user": creds.Name}).
				WithError(err).Error("authentication failed")
		}

		payload, _ := json.Marshal(protocol.Response{AuthenticationResult: &result})
		return []Command{SendToSome{IDs: []string{id}, Payload: payload}}
	}

	sess.authenticated = true
	sess.name = creds.Name
	l.log.WithFields(logrus.Fields{"conn_id": id, "user": creds.Name}).Info("user authenticated")

	result, _ := json.Marshal(protocol.Response{
		AuthenticationResult: &protocol.AuthenticationResult{Result: true},
	})
	joined, _ := json.Marshal(protocol.Response{
		Connection: &protocol.ConnectionNotice{UserName: sess.name, IsConnected: true},
	})
	return []Command{
		SendToSome{IDs: []string{id}, Payload: result},
		SendToSome{IDs: l.otherAuthenticated(id), Payload: joined},
	}
}

func (l *Logic) register(id string, creds protocol.Credentials) []Command {
	result := protocol.RegistrationResult{Result: true}

	if err := l.svc.Register(creds.Name, creds.Password); err != nil {
		result.Result = false

		var regErr *protocol.RegistrationError
		if errors.As(err, &regErr) {
			result.Error = regErr
			l.log.WithFields(logrus.Fields{"conn_id": id, "user": creds.Name}).
				WithError(regErr).Info("registration rejected")
		} else {
			l.log.WithFields(logrus.Fields{"conn_id": id, "user": creds.Name}).
				WithError(err).Error("registration failed")
		}
	} else {
		l.log.WithFields(logrus.Fields{"conn_id": id, "user": creds.Name}).Info("user registered")
	}

	payload, _ := json.Marshal(protocol.Response{RegistrationResult: &result})
	return []Command{SendToSome{IDs: []string{id}, Payload: payload}}
}

// otherAuthenticated lists the ids of all authenticated sessions except
// self.  Callers hold l.mu.
func (l *Logic) otherAuthenticated(self string) []string {
	ids := make([]string, 0, len(l.users))
	for id, sess := range l.users {
		if sess.authenticated && id != self {
			ids = append(ids, id)
		}
	}
	return ids
}

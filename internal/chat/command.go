package chat

// Command instructs the transport to deliver a payload to a set of
// connections or to drop one.  The session logic performs no I/O itself;
// commands returned from a single event must be executed in order.
type Command interface {
	command()
}

// SendToAll delivers payload to every live connection.
type SendToAll struct {
	Payload []byte
}

// SendToAllExcept delivers payload to every live connection but ExceptID.
type SendToAllExcept struct {
	ExceptID string
	Payload  []byte
}

// SendToSome delivers payload to the listed connections.  IDs that are no
// longer connected are skipped silently.
type SendToSome struct {
	IDs     []string
	Payload []byte
}

// DisconnectUser drops the connection's write half, which terminates its
// reader.
type DisconnectUser struct {
	ID string
}

func (SendToAll) command()       {}
func (SendToAllExcept) command() {}
func (SendToSome) command()      {}
func (DisconnectUser) command()  {}

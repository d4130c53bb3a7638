package server

import (
	"net"
	"sync"
	"time"

	"tcpchat/internal/protocol"
)

// writeTimeout caps how long one framed write may block on a stuck peer.
const writeTimeout = 10 * time.Second

// peer is one live connection's entry in the connection table.  The reader
// goroutine owns the read side; the write side is shared by concurrent
// fan-outs, so every framed write serialises on wmu.  A frame is written
// with a single Write call, which together with wmu guarantees that bytes of
// distinct frames never interleave on the wire.
type peer struct {
	id   string
	conn net.Conn

	wmu sync.Mutex
}

func newPeer(id string, conn net.Conn) *peer {
	return &peer{id: id, conn: conn}
}

// writeFrame sends payload as one length-prefixed frame.
func (p *peer) writeFrame(payload []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return protocol.WriteFrame(p.conn, payload)
}

// close drops the connection.  The reader goroutine observes the closed
// socket on its next read and unwinds through the normal disconnect path.
func (p *peer) close() {
	p.conn.Close()
}

package server

import (
	"golang.org/x/sync/errgroup"

	"tcpchat/internal/chat"
)

// execute runs the commands returned by one chat event, in order.  Target
// sets are snapshotted from the connection table before any write is issued.
func (s *Server) execute(cmds []chat.Command) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case chat.SendToAll:
			s.fanOut(s.snapshotExcept(""), c.Payload)
		case chat.SendToAllExcept:
			targets := s.snapshotExcept(c.ExceptID)
			if len(targets) == 0 {
				continue
			}
			s.fanOut(targets, c.Payload)
		case chat.SendToSome:
			s.fanOut(s.lookup(c.IDs), c.Payload)
		case chat.DisconnectUser:
			s.disconnect(c.ID)
		default:
			s.log.Errorf("unknown command %T", cmd)
		}
	}
}

// snapshotExcept copies every table entry except the given id (empty string
// excludes nothing).  Write-half references are lifted under the lock so the
// writes themselves run with the table unlocked.
func (s *Server) snapshotExcept(except string) []*peer {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([]*peer, 0, len(s.conns))
	for id, p := range s.conns {
		if id == except {
			continue
		}
		peers = append(peers, p)
	}
	return peers
}

// lookup resolves ids against the current table.  Ids that have disconnected
// since the command was produced are skipped silently.
func (s *Server) lookup(ids []string) []*peer {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([]*peer, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.conns[id]; ok {
			peers = append(peers, p)
		}
	}
	return peers
}

// fanOut writes payload to every target concurrently.  Each destination
// logs its own failure; one broken peer neither cancels nor delays the
// others, and the failing peer's reader will notice the broken socket on
// its next read.
func (s *Server) fanOut(targets []*peer, payload []byte) {
	if len(targets) == 0 || payload == nil {
		return
	}

	var g errgroup.Group
	for _, p := range targets {
		g.Go(func() error {
			if err := p.writeFrame(payload); err != nil {
				s.log.WithField("conn_id", p.id).WithError(err).Error("fan-out write failed")
			}
			return nil
		})
	}
	g.Wait()
}

// disconnect removes id from the table and closes its socket.
func (s *Server) disconnect(id string) {
	s.mu.Lock()
	p := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()

	if p != nil {
		p.close()
	}
}

package ws

import (
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Conn is one live client connection.
type Conn interface {
	ID() string
	Send(payload []byte) error
}

// Registry keeps track of which connections are attached to which room.
// Every room has its own lock so traffic in one room never waits on another.
type Registry struct {
	rooms sync.Map // roomId -> *roomConns
}

type roomConns struct {
	mu    sync.RWMutex
	conns []Conn // attach order
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) room(roomId string) *roomConns {
	rc, _ := r.rooms.LoadOrStore(roomId, &roomConns{})
	return rc.(*roomConns)
}

// Connect attaches conn to roomId. Connecting the same conn twice is a no-op.
func (r *Registry) Connect(roomId string, conn Conn) {
	for {
		rc := r.room(roomId)
		rc.mu.Lock()
		// the room may have been dropped by a concurrent Disconnect
		if cur, ok := r.rooms.Load(roomId); !ok || cur != rc {
			rc.mu.Unlock()
			continue
		}
		for _, c := range rc.conns {
			if c == conn {
				rc.mu.Unlock()
				return
			}
		}
		rc.conns = append(rc.conns, conn)
		count := len(rc.conns)
		rc.mu.Unlock()

		log.WithFields(log.Fields{"room": roomId, "conn": conn.ID(), "total": count}).Info("connection joined room")
		return
	}
}

// Disconnect removes conn from roomId. Unknown rooms or connections are ignored.
func (r *Registry) Disconnect(roomId string, conn Conn) {
	v, ok := r.rooms.Load(roomId)
	if !ok {
		return
	}
	rc := v.(*roomConns)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	for i, c := range rc.conns {
		if c == conn {
			rc.conns = append(rc.conns[:i:i], rc.conns[i+1:]...)
			log.WithFields(log.Fields{"room": roomId, "conn": conn.ID(), "remaining": len(rc.conns)}).Info("connection left room")
			break
		}
	}
	if len(rc.conns) == 0 {
		r.rooms.CompareAndDelete(roomId, rc)
	}
}

// Broadcast sends msg to every connection in roomId. A failed send is logged
// and skipped, it never stops delivery to the rest of the room.
func (r *Registry) Broadcast(roomId string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Broadcast unable to marshal message for room %s: %v", roomId, err)
		return
	}

	conns := r.Conns(roomId)
	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			log.WithFields(log.Fields{"room": roomId, "conn": c.ID()}).Warnf("broadcast send failed: %v", err)
		}
	}
}

// Send delivers msg to a single connection.
func (r *Registry) Send(conn Conn, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Send(payload)
}

// Conns returns a copy of the connections in roomId in attach order.
func (r *Registry) Conns(roomId string) []Conn {
	v, ok := r.rooms.Load(roomId)
	if !ok {
		return nil
	}
	rc := v.(*roomConns)

	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return append([]Conn(nil), rc.conns...)
}

func (r *Registry) Count(roomId string) int {
	v, ok := r.rooms.Load(roomId)
	if !ok {
		return 0
	}
	rc := v.(*roomConns)

	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.conns)
}

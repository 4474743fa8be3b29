package registry

// sessionIndex tracks, per connection, the declared username and occupied
// rooms, plus the reverse room->connections mapping used to resolve
// broadcast audiences. It has no lock of its own: the Registry owns it and
// every call happens inside the Registry's critical section, which is what
// keeps membership counts and occupancy in lockstep.
type sessionIndex struct {
	usernames map[string]string              // connID -> declared username
	occupied  map[string]map[string]struct{} // connID -> occupied room ids
	roomConns map[string]map[string]struct{} // roomID -> connIDs joined
	userConns map[string]string              // app-level userID -> current connID
}

func newSessionIndex() *sessionIndex {
	return &sessionIndex{
		usernames: make(map[string]string),
		occupied:  make(map[string]map[string]struct{}),
		roomConns: make(map[string]map[string]struct{}),
		userConns: make(map[string]string),
	}
}

// register upserts the username for a connection. Reconnecting clients
// re-register under a fresh connection id.
func (s *sessionIndex) register(connID, username string) {
	s.usernames[connID] = username
}

func (s *sessionIndex) username(connID string) string {
	return s.usernames[connID]
}

// bindUser points a persistent user identity at its current connection,
// letting a refreshed client recover state under a new socket.
func (s *sessionIndex) bindUser(userID, connID string) {
	if userID != "" {
		s.userConns[userID] = connID
	}
}

// recordJoin marks the connection as occupying the room. Returns false if
// it already does.
func (s *sessionIndex) recordJoin(connID, roomID string) bool {
	rooms, ok := s.occupied[connID]
	if !ok {
		rooms = make(map[string]struct{})
		s.occupied[connID] = rooms
	}
	if _, joined := rooms[roomID]; joined {
		return false
	}
	rooms[roomID] = struct{}{}

	conns, ok := s.roomConns[roomID]
	if !ok {
		conns = make(map[string]struct{})
		s.roomConns[roomID] = conns
	}
	conns[connID] = struct{}{}

	return true
}

func (s *sessionIndex) recordLeave(connID, roomID string) {
	if rooms, ok := s.occupied[connID]; ok {
		delete(rooms, roomID)
	}
	if conns, ok := s.roomConns[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(s.roomConns, roomID)
		}
	}
}

// connsInRoom resolves a room audience to connection ids, optionally
// excluding one connection (the sender).
func (s *sessionIndex) connsInRoom(roomID, except string) []string {
	conns, ok := s.roomConns[roomID]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(conns))
	for id := range conns {
		if id == except {
			continue
		}
		out = append(out, id)
	}
	return out
}

// dissolveRoom clears all occupancy records for a destroyed room.
func (s *sessionIndex) dissolveRoom(roomID string) {
	for connID := range s.roomConns[roomID] {
		if rooms, ok := s.occupied[connID]; ok {
			delete(rooms, roomID)
		}
	}
	delete(s.roomConns, roomID)
}

// drop erases everything the index knows about a connection and returns
// the username and occupied rooms the Registry needs for cleanup.
func (s *sessionIndex) drop(connID string) (username string, occupiedRooms []string) {
	username = s.usernames[connID]
	delete(s.usernames, connID)

	for roomID := range s.occupied[connID] {
		occupiedRooms = append(occupiedRooms, roomID)
		if conns, ok := s.roomConns[roomID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(s.roomConns, roomID)
			}
		}
	}
	delete(s.occupied, connID)

	for userID, id := range s.userConns {
		if id == connID {
			delete(s.userConns, userID)
		}
	}

	return username, occupiedRooms
}

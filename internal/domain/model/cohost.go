package model

// CoHostSet is the set of addresses permitted to co-stream in a room.
type CoHostSet struct {
	RoomID uint64
	Hosts  []Address
}

// Contains reports whether addr currently holds co-host rights.
func (s *CoHostSet) Contains(addr Address) bool {
	for _, h := range s.Hosts {
		if h == addr {
			return true
		}
	}
	return false
}

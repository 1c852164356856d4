package model

// StatSnapshot is a read-only view of one user's stats for a single
// evaluation pass. Missing entries read as zero / false.
type StatSnapshot struct {
	counters map[StatKey]int64
	sets     map[StatKey]int64
	flags    map[string]bool
}

// NewStatSnapshot copies the given maps. Nil maps are allowed.
func NewStatSnapshot(counters, setSizes map[StatKey]int64, flags map[string]bool) StatSnapshot {
	s := StatSnapshot{
		counters: make(map[StatKey]int64, len(counters)),
		sets:     make(map[StatKey]int64, len(setSizes)),
		flags:    make(map[string]bool, len(flags)),
	}
	for k, v := range counters {
		s.counters[k] = v
	}
	for k, v := range setSizes {
		s.sets[k] = v
	}
	for k, v := range flags {
		if v {
			s.flags[k] = true
		}
	}
	return s
}

// Counter returns the value of an integer counter.
func (s StatSnapshot) Counter(k StatKey) int64 { return s.counters[k] }

// SetSize returns the cardinality of a string set.
func (s StatSnapshot) SetSize(k StatKey) int64 { return s.sets[k] }

// Flag reports whether a moment flag has been set.
func (s StatSnapshot) Flag(id string) bool { return s.flags[id] }

// WithRemote returns a copy where each remotely supplied counter is raised
// to the remote value if that is larger. The remote aggregate covers every
// device, the local counter only this one.
func (s StatSnapshot) WithRemote(r RemoteStats) StatSnapshot {
	out := NewStatSnapshot(s.counters, s.sets, s.flags)
	for k, v := range r.Counters() {
		if v > out.counters[k] {
			out.counters[k] = v
		}
	}
	return out
}

package workflow

// docSet is the materialized live document set with per-type counts.
type docSet struct {
	live   map[DocID]struct{}
	counts []uint32
}

func newDocSet(types int) docSet {
	return docSet{live: make(map[DocID]struct{}), counts: make([]uint32, types)}
}

func (s docSet) clone() docSet {
	out := docSet{
		live:   make(map[DocID]struct{}, len(s.live)),
		counts: make([]uint32, len(s.counts)),
	}
	for d := range s.live {
		out.live[d] = struct{}{}
	}
	copy(out.counts, s.counts)
	return out
}

// add reports whether d was newly added.
func (s docSet) add(d DocID) bool {
	if _, ok := s.live[d]; ok {
		return false
	}
	s.live[d] = struct{}{}
	s.counts[d.Type()]++
	return true
}

func (s docSet) remove(d DocID) bool {
	if _, ok := s.live[d]; !ok {
		return false
	}
	delete(s.live, d)
	s.counts[d.Type()]--
	return true
}

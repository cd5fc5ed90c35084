package status

// table is the set form of a transition list, for O(1) membership checks.
type table[S ~string] map[S]map[S]struct{}

func buildTable[S ~string](transitions map[S][]S) table[S] {
	t := make(table[S], len(transitions))
	for cur, next := range transitions {
		set := make(map[S]struct{}, len(next))
		for _, n := range next {
			set[n] = struct{}{}
		}
		t[cur] = set
	}
	return t
}

func (t table[S]) allows(cur, next S) bool {
	_, ok := t[cur][next]
	return ok
}

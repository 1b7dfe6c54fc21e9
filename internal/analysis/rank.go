package analysis

import "sort"

// tally counts keys and remembers the order each key was first seen, so
// that ranking can break ties deterministically.
type tally struct {
	index  map[string]int
	keys   []string
	counts []int
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(key string) {
	i, ok := t.index[key]
	if !ok {
		i = len(t.keys)
		t.index[key] = i
		t.keys = append(t.keys, key)
		t.counts = append(t.counts, 0)
	}
	t.counts[i]++
}

func (t *tally) len() int { return len(t.keys) }

type ranked struct {
	key   string
	count int
}

// top returns the n most frequent keys, highest count first. Equal counts
// keep first-seen order. n <= 0 returns every key.
func (t *tally) top(n int) []ranked {
	out := make([]ranked, len(t.keys))
	for i, k := range t.keys {
		out[i] = ranked{key: k, count: t.counts[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].count > out[j].count
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

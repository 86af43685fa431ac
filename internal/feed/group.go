package feed

// Grouper collects sibling elements that share a key into one record. A new
// record begins whenever the key differs from the previous element's key.
type Grouper[K comparable, V any] struct {
	key     K
	current *V
	done    []V
}

// Next returns the record for key, flushing the previous record when the key
// changed. init builds a fresh record.
func (g *Grouper[K, V]) Next(key K, init func() V) *V {
	if g.current != nil && g.key == key {
		return g.current
	}
	g.flush()
	v := init()
	g.key = key
	g.current = &v
	return g.current
}

// Current returns the in-progress record, or nil.
func (g *Grouper[K, V]) Current() *V { return g.current }

// Flush completes the pending record and returns every record seen so far.
func (g *Grouper[K, V]) Flush() []V {
	g.flush()
	return g.done
}

func (g *Grouper[K, V]) flush() {
	if g.current != nil {
		g.done = append(g.done, *g.current)
		g.current = nil
	}
}

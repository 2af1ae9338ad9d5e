package fixtures

import "sync"

// Tracker is an ordered set of ids of entities created by the suite. It is only used to
// delete those entities at the end of the run.
type Tracker struct {
	ids  []string
	lock sync.Mutex
}

// Add appends id unless it is empty or already tracked.
func (t *Tracker) Add(id string) {
	if id == "" {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, existing := range t.ids {
		if existing == id {
			return
		}
	}
	t.ids = append(t.ids, id)
}

// IDs returns a copy of the tracked ids in insertion order.
func (t *Tracker) IDs() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.ids...)
}

func (t *Tracker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.ids)
}

// Remove forgets the given ids, keeping the order of the rest.
func (t *Tracker) Remove(ids ...string) {
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	kept := t.ids[:0]
	for _, id := range t.ids {
		if _, ok := gone[id]; !ok {
			kept = append(kept, id)
		}
	}
	t.ids = kept
}

// File: internal/obj/registry.go
// Registry is the arena of Object, keyed by a stable ID, that backs the
// multiplexor's master list (spec.md §3 "Lifecycle", §9 "Peer graph is
// cyclic": two separate index-keyed adjacency lists inside an arena).
//
// Author: momentics <momentics@gmail.com>
package obj

// Registry owns every live Object. Only the loop thread calls its
// mutating methods, per spec §5.
type Registry struct {
	nextID ID
	byID   map[ID]*Object
	order  []ID // iteration order == registration order (spec §4.D fan-out ordering)
}

// NewRegistry creates an empty arena.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]*Object)}
}

// Add allocates a fresh ID, stores obj, and appends it to the
// registration-order list.
func (r *Registry) Add(name string, kind Kind, bufCap int) *Object {
	r.nextID++
	o := New(r.nextID, name, kind, bufCap)
	r.byID[o.ID] = o
	r.order = append(r.order, o.ID)
	return o
}

// Get resolves an ID to its Object, or nil if it has been removed.
func (r *Registry) Get(id ID) *Object {
	return r.byID[id]
}

// All returns every live object in registration order. The slice is
// owned by the caller; mutating the registry during iteration over a
// previously returned slice is safe, but the slice becomes stale.
func (r *Registry) All() []*Object {
	out := make([]*Object, 0, len(r.order))
	for _, id := range r.order {
		if o := r.byID[id]; o != nil {
			out = append(out, o)
		}
	}
	return out
}

// FindByName looks up a live object by name (console selection at
// client handshake time, spec §6 process_client contract).
func (r *Registry) FindByName(name string) (ID, bool) {
	for _, id := range r.order {
		if o := r.byID[id]; o != nil && o.Name == name {
			return id, true
		}
	}
	return 0, false
}

// Remove destroys an object: it is taken out of every peer list that
// might reference it before its storage is released, satisfying spec
// §3 invariant 5.
func (r *Registry) Remove(id ID) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	for _, other := range r.byID {
		other.ReaderPeers = removeID(other.ReaderPeers, id)
		other.WriterPeers = removeID(other.WriterPeers, id)
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func removeID(ids []ID, target ID) []ID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Link wires src's output to be fanned out to dst, and registers dst
// as a reader of src (spec §3 "ordered set of reader peers and writer
// peers"). The link is bidirectional bookkeeping of a one-way byte
// flow: src -> dst.
func (r *Registry) Link(src, dst ID) {
	s, d := r.byID[src], r.byID[dst]
	if s == nil || d == nil {
		return
	}
	s.ReaderPeers = appendUnique(s.ReaderPeers, dst)
	d.WriterPeers = appendUnique(d.WriterPeers, src)
}

func appendUnique(ids []ID, id ID) []ID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

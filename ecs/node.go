package ecs

// nodeItem is one link in a Node's member list.
type nodeItem struct {
	entity     *Entity
	prev, next *nodeItem
}

// Node is a live membership index: a doubly-linked, insertion-ordered list of
// the entities that hold a non-disposed component for every TypeId in its
// signature. Membership changes enqueue notifications that are delivered in
// batch by Finish, never synchronously.
//
// Nodes are normally obtained from an Engine, which caches one Node per
// distinct signature and routes entity mutations to it. Direct construction
// is for isolated use and is not cached anywhere.
type Node struct {
	signature Signature
	head      *nodeItem
	tail      *nodeItem
	items     map[*Entity]*nodeItem
	size      int

	added   []*Entity
	removed []*Entity

	onAdded   []func(*Entity)
	onRemoved []func(*Entity)
}

// NewNode builds a standalone node for the given component types.
func NewNode(types ...*ComponentType) *Node {
	ids := make([]TypeId, len(types))
	for i, ct := range types {
		ids[i] = ct.id
	}
	return newNode(newSignature(ids))
}

func newNode(sig Signature) *Node {
	return &Node{
		signature: sig,
		items:     make(map[*Entity]*nodeItem),
	}
}

// Signature returns the node's canonical signature.
func (n *Node) Signature() Signature { return n.signature }

// Size returns the number of linked entities.
func (n *Node) Size() int { return n.size }

// EntityFits reports whether the entity holds a non-disposed component for
// every type in the signature.
func (n *Node) EntityFits(e *Entity) bool {
	if e == nil || e.disposed {
		return false
	}
	for _, id := range n.signature {
		if !e.hasID(id, false) {
			return false
		}
	}
	return true
}

// AddEntity links the entity at the tail and enqueues an added notification.
// No-op if the entity is already linked or does not fit.
func (n *Node) AddEntity(e *Entity) {
	if _, linked := n.items[e]; linked {
		return
	}
	if !n.EntityFits(e) {
		return
	}

	item := &nodeItem{entity: e, prev: n.tail}
	if n.tail != nil {
		n.tail.next = item
	} else {
		n.head = item
	}
	n.tail = item
	n.items[e] = item
	n.size++
	n.added = append(n.added, e)
}

// RemoveEntity unlinks the entity and enqueues a removed notification.
// No-op if the entity is not linked.
func (n *Node) RemoveEntity(e *Entity) {
	item, linked := n.items[e]
	if !linked {
		return
	}

	if item.prev != nil {
		item.prev.next = item.next
	} else {
		n.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		n.tail = item.prev
	}
	item.prev, item.next = nil, nil

	delete(n.items, e)
	n.size--
	n.removed = append(n.removed, e)
}

// UpdateEntity reconciles the entity's membership with its current component
// set. Every mutation that can change membership routes through this call.
func (n *Node) UpdateEntity(e *Entity) {
	_, linked := n.items[e]
	fits := n.EntityFits(e)
	switch {
	case fits && !linked:
		n.AddEntity(e)
	case !fits && linked:
		n.RemoveEntity(e)
	}
}

// Each traverses members head to tail. The cursor advances before the
// callback runs, so a callback may remove the current entity from the node
// without corrupting the traversal.
func (n *Node) Each(fn func(*Entity)) {
	for item := n.head; item != nil; {
		next := item.next
		fn(item.entity)
		item = next
	}
}

// Find returns the first member matching the predicate, in traversal order,
// or nil.
func (n *Node) Find(pred func(*Entity) bool) *Entity {
	for item := n.head; item != nil; {
		next := item.next
		if pred(item.entity) {
			return item.entity
		}
		item = next
	}
	return nil
}

// OnAdded registers a persistent listener for entities entering the node.
// Listeners never fire synchronously; see Finish.
func (n *Node) OnAdded(fn func(*Entity)) {
	if fn == nil {
		panic("ecs: nil OnAdded listener")
	}
	n.onAdded = append(n.onAdded, fn)
}

// OnRemoved registers a persistent listener for entities leaving the node.
func (n *Node) OnRemoved(fn func(*Entity)) {
	if fn == nil {
		panic("ecs: nil OnRemoved listener")
	}
	n.onRemoved = append(n.onRemoved, fn)
}

// Finish drains the pending notification queues: every added entity first,
// FIFO, then every removed entity, FIFO. Notifications enqueued by listeners
// during the drain stay queued for the next Finish, so a listener always
// observes a settled world.
func (n *Node) Finish() {
	added := n.added
	removed := n.removed
	n.added = nil
	n.removed = nil

	for _, e := range added {
		for _, fn := range n.onAdded {
			fn(e)
		}
	}
	for _, e := range removed {
		for _, fn := range n.onRemoved {
			fn(e)
		}
	}
}

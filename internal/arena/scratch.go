package arena

// Scratch is a checkpoint on an Arena: Pool.Get records the cursor,
// Release restores it, enabling nested temporary allocations without a
// dedicated free list.
type Scratch struct {
	arena *Arena
	pos   uint64
}

// Arena returns the scratch's backing arena, for use as an allocation
// target between Get and Release.
func (s Scratch) Arena() *Arena { return s.arena }

// Pool is a small, fixed set of scratch-capable arenas owned by a single
// goroutine and threaded explicitly through call chains, in place of a
// package-global registry keyed by thread-local storage: each
// producer/consumer goroutine constructs its own Pool once at startup
// and passes it down through its context struct.
//
// At least two arenas must be registered so that a caller holding one
// scratch as a conflict can always obtain a second, non-aliasing one.
type Pool struct {
	arenas []*Arena
}

// NewPool wraps the given backing arenas as a scratch pool. len(backing)
// must be at least 2.
func NewPool(backing ...*Arena) *Pool {
	if len(backing) < 2 {
		panic("arena: scratch pool requires at least two backing arenas")
	}
	return &Pool{arenas: backing}
}

// Get returns a scratch over the first pool arena not present in
// conflicts, with its cursor checkpointed. It panics if every arena in
// the pool conflicts, since that means the pool was undersized for its
// caller's nesting depth, a configuration bug rather than a runtime
// condition.
func (p *Pool) Get(conflicts ...*Arena) Scratch {
	for _, a := range p.arenas {
		if !containsArena(conflicts, a) {
			return Scratch{arena: a, pos: a.Pos()}
		}
	}
	panic("arena: scratch pool exhausted: every arena conflicts")
}

func containsArena(list []*Arena, a *Arena) bool {
	for _, c := range list {
		if c == a {
			return true
		}
	}
	return false
}

// Release restores the scratch's arena cursor to the position observed
// at Get. It is idempotent in release order: releasing scratches out of
// nesting order is a caller bug, not guarded against here. Release must
// occur before any further alloc on that scratch.
func Release(s Scratch) {
	s.arena.Seek(s.pos)
}

package core

import "sort"

// EffectFunc is invoked once per op during a CommandBuffer drain.
type EffectFunc func(op *Op)

// PushOptions configures a single CommandBuffer.Push call. Key defaults to
// Type when empty. SquashWith, when set, replaces the coalesced payload
// with its own fold of the previous and new payloads instead of a plain
// last-write-wins replacement.
type PushOptions struct {
	Type       string
	Key        string
	Payload    any
	Priority   int
	SquashWith SquashFunc
}

// CommandBuffer is a per-component ordered queue with keyed coalescing and
// priority-sorted, budget-aware draining. Keys are unique within a buffer:
// pushing a key already present replaces that op's payload and priority in
// place rather than appending a second entry. It is destroyed along with
// its owning Component and is not safe for concurrent use — like the rest
// of this package, it is driven from a single goroutine at a time.
type CommandBuffer struct {
	ops        []Op
	index      map[string]int // key -> position in ops
	sequence   int64
	generation int64
}

// NewCommandBuffer returns an empty CommandBuffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{index: make(map[string]int)}
}

// Size returns the number of queued ops.
func (cb *CommandBuffer) Size() int {
	return len(cb.ops)
}

// Generation returns the buffer's current generation counter.
func (cb *CommandBuffer) Generation() int64 {
	return cb.generation
}

// BumpGeneration advances the generation counter. Component.update calls
// this on every patch so ops pushed afterward carry an informational
// marker of which update round produced them.
func (cb *CommandBuffer) BumpGeneration() {
	cb.generation++
}

// Push enqueues an op, coalescing against any existing op with the same
// key. Returns ErrInvalidOp if Type is empty, whether or not a Key was
// supplied.
func (cb *CommandBuffer) Push(opts PushOptions) error {
	key := opts.Key
	if key == "" {
		key = opts.Type
	}
	if opts.Type == "" || key == "" {
		return ErrInvalidOp
	}

	if idx, ok := cb.index[key]; ok {
		prev := cb.ops[idx]
		newOp := Op{
			Type:       opts.Type,
			Key:        key,
			Payload:    opts.Payload,
			Priority:   opts.Priority,
			Sequence:   prev.Sequence,
			Generation: cb.generation,
		}
		payload := opts.Payload
		if opts.SquashWith != nil {
			payload = opts.SquashWith(prev.Payload, opts.Payload, &prev, &newOp)
		}
		newOp.Payload = payload
		cb.ops[idx] = newOp
		return nil
	}

	cb.sequence++
	cb.ops = append(cb.ops, Op{
		Type:       opts.Type,
		Key:        key,
		Payload:    opts.Payload,
		Priority:   opts.Priority,
		Sequence:   cb.sequence,
		Generation: cb.generation,
	})
	cb.index[key] = len(cb.ops) - 1
	return nil
}

// Clear discards every queued op without running effects, used by
// Component.Destroy to drop pending work.
func (cb *CommandBuffer) Clear() {
	cb.ops = nil
	cb.index = make(map[string]int)
}

// Drain snapshots the current queue, sorts it by (priority asc, sequence
// asc), and runs effect once per op in that order. The live buffer and
// index are cleared before the snapshot starts running, so any op pushed
// by effect (directly, or by a cleanup effect triggers) lands in the live
// buffer and is deferred to the next Drain call rather than run in this
// one — this is what guarantees one op can never block its own future
// pushes indefinitely.
//
// If shouldYield reports true before the snapshot is exhausted, the
// remaining ops are re-pushed (coalescing against anything the effect
// pushed live in the meantime) and Drain returns false. Drain returns true
// once every snapshot op has run.
func (cb *CommandBuffer) Drain(effect EffectFunc, shouldYield func() bool) bool {
	if len(cb.ops) == 0 {
		return true
	}

	snapshot := cb.ops
	cb.ops = nil
	cb.index = make(map[string]int)

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Priority != snapshot[j].Priority {
			return snapshot[i].Priority < snapshot[j].Priority
		}
		return snapshot[i].Sequence < snapshot[j].Sequence
	})

	for i := range snapshot {
		if shouldYield != nil && shouldYield() {
			for _, remaining := range snapshot[i:] {
				op := remaining
				_ = cb.Push(PushOptions{
					Type:     op.Type,
					Key:      op.Key,
					Payload:  op.Payload,
					Priority: op.Priority,
				})
			}
			return false
		}
		effect(&snapshot[i])
	}

	return true
}

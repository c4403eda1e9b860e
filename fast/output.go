// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package fast

import (
	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/util"
)

// Edits are made block by block in postorder, so they need sorting.
// Edits at the same point stay in the order in which they were made.

func (env *envT) output() *regalloc.OutputT {
	queue := util.PriorityQueueOf(env.edits, func(x editT, y editT) bool {
		if x.Point != y.Point {
			return x.Point < y.Point
		}
		return x.seq < y.seq
	})
	edits := make([]regalloc.PointEditT, 0, queue.Len())
	for _, edit := range queue.Drain() {
		edits = append(edits, edit.PointEditT)
	}
	env.edits = nil
	env.stats.SpillSlots = env.slots.numSlots()
	env.stats.FrameBytes = env.slots.frameBytes()
	return &regalloc.OutputT{
		NumSpillSlots:    env.slots.numSlots(),
		Edits:            edits,
		Allocs:           env.allocs,
		InstAllocOffsets: env.allocOffset,
		SafepointSlots:   []regalloc.SafepointSlotT{},
		DebugLocations:   []regalloc.DebugLocationT{},
		Stats:            env.stats,
	}
}

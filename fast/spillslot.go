// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package fast

import (
	"github.com/s48/regalloc/regalloc"
)

// Spill slots are handed out from a frame cursor that only moves
// up.  A vreg keeps the same slot for the whole run and slots are
// never reused.

type spillSlotsT struct {
	slots  []regalloc.SpillSlotT // indexed by vreg id, -1 if none
	cursor int
	count  int
}

func makeSpillSlots(numVRegs int) spillSlotsT {
	slots := make([]regalloc.SpillSlotT, numVRegs)
	for i := range slots {
		slots[i] = -1
	}
	return spillSlotsT{slots: slots}
}

func (s *spillSlotsT) slotFor(vreg regalloc.VRegT) regalloc.SpillSlotT {
	if slot := s.slots[vreg.VReg()]; 0 <= slot {
		return slot
	}
	size := vreg.Class().SlotSize()
	s.cursor = alignUp(s.cursor, size)
	slot := regalloc.SpillSlotT(s.cursor)
	s.cursor += size
	s.count += 1
	s.slots[vreg.VReg()] = slot
	return slot
}

func (s *spillSlotsT) hasSlot(vreg regalloc.VRegT) bool {
	return 0 <= s.slots[vreg.VReg()]
}

func (s *spillSlotsT) numSlots() int   { return s.count }
func (s *spillSlotsT) frameBytes() int { return s.cursor }

// 'align' must be a power of two.

func alignUp(n int, align int) int {
	return (n + align - 1) &^ (align - 1)
}

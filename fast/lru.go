// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Which vreg, if any, is in each physical register.  There is one
// fixed-size table per register class with an entry for each of the
// class's registers, plus an index from vregs to their entries.
// Each entry records the program point at which its vreg was last
// used or defined; eviction takes the oldest one.

package fast

import (
	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/util"
)

type residentT struct {
	vreg     regalloc.VRegT
	occupied bool
	lastUse  regalloc.ProgPointT
}

type classTableT struct {
	regs    []regalloc.PRegT // in order of preference
	entries []residentT      // parallel to 'regs'
}

type residencyT struct {
	tables   [regalloc.NumRegClasses]classTableT
	position map[regalloc.PRegT]int
	where    []int // entry index for each vreg id, or -1
}

type pinnedT = util.SetT[regalloc.PRegT]

func makeResidency(machine *regalloc.MachineEnvT, numVRegs int) residencyT {
	lru := residencyT{
		position: map[regalloc.PRegT]int{},
		where:    make([]int, numVRegs),
	}
	for class, regs := range machine.Regs {
		lru.tables[class] = classTableT{regs: regs, entries: make([]residentT, len(regs))}
		for i, preg := range regs {
			lru.position[preg] = i
		}
	}
	for i := range lru.where {
		lru.where[i] = -1
	}
	return lru
}

func (lru *residencyT) capacity(class regalloc.RegClassT) int {
	return len(lru.tables[class].regs)
}

// Where 'vreg' is, without touching its recency.

func (lru *residencyT) peek(vreg regalloc.VRegT) (regalloc.PRegT, bool) {
	index := lru.where[vreg.VReg()]
	if index < 0 {
		return regalloc.PRegT{}, false
	}
	return lru.tables[vreg.Class()].regs[index], true
}

// Where 'vreg' is, marking it as used at 'point'.

func (lru *residencyT) lookup(vreg regalloc.VRegT, point regalloc.ProgPointT) (regalloc.PRegT, bool) {
	index := lru.where[vreg.VReg()]
	if index < 0 {
		return regalloc.PRegT{}, false
	}
	table := &lru.tables[vreg.Class()]
	table.entries[index].lastUse = point
	return table.regs[index], true
}

func (lru *residencyT) occupant(preg regalloc.PRegT) (regalloc.VRegT, bool) {
	index, found := lru.position[preg]
	if !found {
		return regalloc.VRegT{}, false
	}
	entry := &lru.tables[preg.Class()].entries[index]
	return entry.vreg, entry.occupied
}

// Makes 'preg' hold 'vreg', most recently used as of 'point'.  If
// 'vreg' was somewhere else it isn't anymore.  Returns the vreg that
// had been in 'preg', if there was one.

func (lru *residencyT) insert(vreg regalloc.VRegT, preg regalloc.PRegT, point regalloc.ProgPointT) (regalloc.VRegT, bool) {
	lru.remove(vreg)
	index := lru.position[preg]
	entry := &lru.tables[preg.Class()].entries[index]
	previous, hadPrevious := entry.vreg, entry.occupied
	if hadPrevious {
		lru.where[previous.VReg()] = -1
	}
	*entry = residentT{vreg: vreg, occupied: true, lastUse: point}
	lru.where[vreg.VReg()] = index
	return previous, hadPrevious
}

func (lru *residencyT) remove(vreg regalloc.VRegT) {
	index := lru.where[vreg.VReg()]
	if index < 0 {
		return
	}
	lru.tables[vreg.Class()].entries[index] = residentT{}
	lru.where[vreg.VReg()] = -1
}

// The first empty register of 'class' that is not pinned.

func (lru *residencyT) free(class regalloc.RegClassT, pinned pinnedT) (regalloc.PRegT, bool) {
	table := &lru.tables[class]
	for i, preg := range table.regs {
		if !table.entries[i].occupied && !pinned.Contains(preg) {
			return preg, true
		}
	}
	return regalloc.PRegT{}, false
}

// Removes and returns the least recently used unpinned vreg of
// 'class', along with the register it was in.  Ties go to the lowest
// vreg id.

func (lru *residencyT) evict(class regalloc.RegClassT, pinned pinnedT) (regalloc.VRegT, regalloc.PRegT, bool) {
	table := &lru.tables[class]
	best := -1
	for i := range table.entries {
		entry := &table.entries[i]
		if !entry.occupied || pinned.Contains(table.regs[i]) {
			continue
		}
		if best < 0 || olderThan(entry, &table.entries[best]) {
			best = i
		}
	}
	if best < 0 {
		return regalloc.VRegT{}, regalloc.PRegT{}, false
	}
	victim := table.entries[best].vreg
	lru.remove(victim)
	return victim, table.regs[best], true
}

func olderThan(x *residentT, y *residentT) bool {
	if x.lastUse != y.lastUse {
		return x.lastUse < y.lastUse
	}
	return x.vreg.VReg() < y.vreg.VReg()
}

// Forget everything, as at the start of a block.

func (lru *residencyT) reset() {
	for class := range lru.tables {
		table := &lru.tables[class]
		for i := range table.entries {
			if table.entries[i].occupied {
				lru.where[table.entries[i].vreg.VReg()] = -1
			}
			table.entries[i] = residentT{}
		}
	}
}

// The residents of 'class', for debugging and tests.

func (lru *residencyT) residents(class regalloc.RegClassT) map[regalloc.PRegT]regalloc.VRegT {
	result := map[regalloc.PRegT]regalloc.VRegT{}
	table := &lru.tables[class]
	for i, entry := range table.entries {
		if entry.occupied {
			result[table.regs[i]] = entry.vreg
		}
	}
	return result
}

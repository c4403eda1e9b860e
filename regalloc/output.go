// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// What the allocator produces: a location for every operand and the
// moves needed to get values into those locations.

package regalloc

import (
	"fmt"
)

// Byte offset of a spill slot from the base of the frame.

type SpillSlotT int

func (slot SpillSlotT) String() string { return fmt.Sprintf("s%d", int(slot)) }

type AllocKindT uint8

const (
	AllocNone AllocKindT = iota
	AllocReg
	AllocStack
)

type AllocationT struct {
	kind AllocKindT
	preg PRegT
	slot SpillSlotT
}

func RegAlloc(preg PRegT) AllocationT        { return AllocationT{kind: AllocReg, preg: preg} }
func StackAlloc(slot SpillSlotT) AllocationT { return AllocationT{kind: AllocStack, slot: slot} }

func (a AllocationT) Kind() AllocKindT { return a.kind }
func (a AllocationT) IsNone() bool     { return a.kind == AllocNone }
func (a AllocationT) IsReg() bool      { return a.kind == AllocReg }
func (a AllocationT) IsStack() bool    { return a.kind == AllocStack }

func (a AllocationT) AsReg() (PRegT, bool) {
	return a.preg, a.kind == AllocReg
}

func (a AllocationT) AsStack() (SpillSlotT, bool) {
	return a.slot, a.kind == AllocStack
}

func (a AllocationT) String() string {
	switch a.kind {
	case AllocReg:
		return a.preg.String()
	case AllocStack:
		return a.slot.String()
	}
	return "none"
}

//----------------------------------------------------------------
// Edits.  The only edit is a move; a store to a spill slot, a reload
// from one, and a register-to-register copy are all moves.

type EditT struct {
	From AllocationT
	To   AllocationT
}

func MakeMove(from AllocationT, to AllocationT) EditT {
	return EditT{From: from, To: to}
}

func (edit EditT) IsStore() bool  { return edit.From.IsReg() && edit.To.IsStack() }
func (edit EditT) IsReload() bool { return edit.From.IsStack() && edit.To.IsReg() }

func (edit EditT) String() string {
	return fmt.Sprintf("move %s -> %s", edit.From, edit.To)
}

// An edit is applied at a program point.  Edits sharing a point are
// applied in the order they appear.

type PointEditT struct {
	Point ProgPointT
	Edit  EditT
}

func (pe PointEditT) String() string {
	return fmt.Sprintf("@%s %s", pe.Point, pe.Edit)
}

//----------------------------------------------------------------

type StatsT struct {
	Insts         int // instructions visited
	Blocks        int
	Operands      int
	RegHits       int // uses found already in a register
	Reloads       int
	Stores        int
	Moves         int // register to register
	Evictions     int
	StackOperands int // operands resolved to a spill slot
	SpillSlots    int
	FrameBytes    int // size of the spill area
	EditsInLoops  int // edits placed in blocks that are part of a cycle
}

// Safepoint slots and debug locations are filled in elsewhere, if at
// all; they are here so that downstream consumers have one type to
// deal with.

type SafepointSlotT struct {
	Point ProgPointT
	Slot  SpillSlotT
}

type DebugLocationT struct {
	Label uint32
	From  ProgPointT
	To    ProgPointT
	Alloc AllocationT
}

type OutputT struct {
	NumSpillSlots    int
	Edits            []PointEditT // sorted by point
	Allocs           []AllocationT
	InstAllocOffsets []int // Allocs index of each instruction's first operand
	SafepointSlots   []SafepointSlotT
	DebugLocations   []DebugLocationT
	Stats            StatsT
}

// The allocations for all of the operands of 'inst'.

func (out *OutputT) InstAllocs(f FunctionT, inst InstT) []AllocationT {
	start := out.InstAllocOffsets[inst]
	return out.Allocs[start : start+len(f.InstOperands(inst))]
}

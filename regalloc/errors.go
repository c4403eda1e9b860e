// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKindT uint8

const (
	InvalidCFG ErrorKindT = iota
	SSAInvariantViolation
	OutOfRegisters
	ConflictingFixedRegisters
	InvalidReuseConstraint
)

var errorKindNames = []string{
	"invalid CFG",
	"SSA invariant violation",
	"out of registers",
	"conflicting fixed registers",
	"invalid reuse constraint",
}

func (kind ErrorKindT) String() string {
	return errorKindNames[kind]
}

// All allocation errors are fatal for the function being allocated.
// Inst is -1 and VReg is invalid when they do not apply.

type RegAllocErrorT struct {
	Kind ErrorKindT
	Inst InstT
	VReg VRegT
	Msg  string
}

// For errors that do not concern a particular register.

var NoVReg = MakeVReg(-1, Int)

func (e *RegAllocErrorT) Error() string {
	where := ""
	if 0 <= e.Inst {
		where = fmt.Sprintf(" at inst %d", e.Inst)
	}
	if 0 <= e.VReg.VReg() {
		where += fmt.Sprintf(" (%s)", e.VReg)
	}
	if e.Msg == "" {
		return e.Kind.String() + where
	}
	return fmt.Sprintf("%s%s: %s", e.Kind, where, e.Msg)
}

func NewError(kind ErrorKindT, inst InstT, vreg VRegT, format string, args ...any) error {
	return &RegAllocErrorT{Kind: kind, Inst: inst, VReg: vreg, Msg: fmt.Sprintf(format, args...)}
}

// For errors that are not tied to an instruction or a register.

func NewFunctionError(kind ErrorKindT, format string, args ...any) error {
	return NewError(kind, -1, NoVReg, format, args...)
}

// Does 'err', or anything it wraps, have the given kind?

func IsKind(err error, kind ErrorKindT) bool {
	var raErr *RegAllocErrorT
	return errors.As(err, &raErr) && raErr.Kind == kind
}

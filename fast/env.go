// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// The state of one allocation run.  Nothing here is shared between
// runs, so separate functions can be allocated in parallel.

package fast

import (
	"github.com/sirupsen/logrus"

	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/util"
)

type OptionsT struct {
	Logger      *logrus.Entry // defaults to the standard logger
	Annotate    bool          // log every instruction's allocations
	ValidateSSA bool          // run regalloc.ValidateSSA first
}

// What the pre-scan learns about each vreg.

type vregInfoT struct {
	defined    bool
	defInst    regalloc.InstT
	defBlock   regalloc.BlockT
	class      regalloc.RegClassT
	crossBlock bool // used outside of its defining block
	stored     bool // its spill slot holds its value
	blockUses  int  // uses remaining in the current block
}

type envT struct {
	f       regalloc.FunctionT
	machine *regalloc.MachineEnvT
	cfg     *regalloc.CFGInfoT
	log     *logrus.Entry
	debug   bool
	opts    OptionsT

	vregs []vregInfoT
	slots spillSlotsT
	lru   residencyT

	block  regalloc.BlockT // being allocated
	pinned pinnedT         // registers that the current operand may not take

	allocs      []regalloc.AllocationT
	allocOffset []int
	edits       []editT
	stats       regalloc.StatsT
}

// Edits get a sequence number so that sorting them by point keeps
// the ones at the same point in the order they were made.

type editT struct {
	regalloc.PointEditT
	seq int
}

func newEnv(f regalloc.FunctionT, machine *regalloc.MachineEnvT, cfg *regalloc.CFGInfoT, opts OptionsT) *envT {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	numVRegs := f.NumVRegs()
	return &envT{
		f:           f,
		machine:     machine,
		cfg:         cfg,
		log:         log,
		debug:       log.Logger.IsLevelEnabled(logrus.DebugLevel),
		opts:        opts,
		vregs:       make([]vregInfoT, numVRegs),
		slots:       makeSpillSlots(numVRegs),
		lru:         makeResidency(machine, numVRegs),
		pinned:      util.NewSet[regalloc.PRegT](),
		allocOffset: make([]int, f.NumInsts()),
	}
}

func (env *envT) info(vreg regalloc.VRegT) *vregInfoT {
	return &env.vregs[vreg.VReg()]
}

// Does the vreg's spill slot currently hold its value?  Values from
// other blocks are stored right after they are defined, so the only
// question is for values defined in the current block.

func (env *envT) valueInSlot(vreg regalloc.VRegT) bool {
	info := env.info(vreg)
	return info.stored || info.defBlock != env.block
}

func (env *envT) addEdit(point regalloc.ProgPointT, from regalloc.AllocationT, to regalloc.AllocationT) {
	edit := regalloc.MakeMove(from, to)
	switch {
	case edit.IsStore():
		env.stats.Stores += 1
	case edit.IsReload():
		env.stats.Reloads += 1
	default:
		env.stats.Moves += 1
	}
	if env.cfg.InLoop[env.block] {
		env.stats.EditsInLoops += 1
	}
	env.edits = append(env.edits, editT{regalloc.PointEditT{Point: point, Edit: edit}, len(env.edits)})
	if env.debug {
		env.log.WithFields(logrus.Fields{
			"point": point,
			"from":  from,
			"to":    to,
		}).Debug("edit")
	}
}

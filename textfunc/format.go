// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package textfunc

import (
	"fmt"
	"strings"

	"github.com/s48/regalloc/regalloc"
)

// A readable listing of an allocation, used for the golden output
// in test cases.  Edits are listed at their program points between
// the instructions:
//
//	0: def v0 = p0
//	@1.b move p0 -> s0
//	1: def v1 = p0
//	spillslots 1

func FormatOutput(f regalloc.FunctionT, out *regalloc.OutputT) string {
	var sb strings.Builder
	edits := out.Edits
	writeEdits := func(upTo regalloc.ProgPointT) {
		for 0 < len(edits) && edits[0].Point <= upTo {
			fmt.Fprintf(&sb, "%s\n", edits[0])
			edits = edits[1:]
		}
	}
	for i := 0; i < f.NumInsts(); i++ {
		inst := regalloc.InstT(i)
		writeEdits(regalloc.BeforeInst(inst))
		fmt.Fprintf(&sb, "%d:", inst)
		allocs := out.InstAllocs(f, inst)
		for j, op := range f.InstOperands(inst) {
			if 0 < j {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s %s = %s", op.Kind(), op.VReg(), allocs[j])
		}
		sb.WriteString("\n")
		writeEdits(regalloc.AfterInst(inst))
	}
	writeEdits(regalloc.ProgPointT(2 * f.NumInsts()))
	fmt.Fprintf(&sb, "spillslots %d\n", out.NumSpillSlots)
	return sb.String()
}

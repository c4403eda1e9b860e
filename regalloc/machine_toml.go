// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Machine environments as TOML files:
//
//	int = [0, 1, 2, 3]
//	float = [0, 1]
//	vector = []
//
// Each list gives the register numbers of that class in order of
// preference.

package regalloc

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type machineFileT struct {
	Int    []int `toml:"int"`
	Float  []int `toml:"float"`
	Vector []int `toml:"vector"`
}

func ParseMachineEnv(data []byte) (*MachineEnvT, error) {
	var file machineFileT
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse machine environment")
	}
	env := &MachineEnvT{}
	for class, regs := range [NumRegClasses][]int{file.Int, file.Float, file.Vector} {
		seen := map[int]bool{}
		for _, index := range regs {
			if index < 0 {
				return nil, errors.Errorf("negative %s register %d", RegClassT(class), index)
			}
			if seen[index] {
				return nil, errors.Errorf("%s register %d listed twice", RegClassT(class), index)
			}
			seen[index] = true
			env.Regs[class] = append(env.Regs[class], MakePReg(index, RegClassT(class)))
		}
	}
	return env, nil
}

func LoadMachineEnv(path string) (*MachineEnvT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read machine environment")
	}
	env, err := ParseMachineEnv(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return env, nil
}

func (env *MachineEnvT) FormatTOML() ([]byte, error) {
	var file machineFileT
	lists := [NumRegClasses]*[]int{&file.Int, &file.Float, &file.Vector}
	for class, regs := range env.Regs {
		*lists[class] = []int{}
		for _, reg := range regs {
			*lists[class] = append(*lists[class], reg.Index())
		}
	}
	return toml.Marshal(file)
}

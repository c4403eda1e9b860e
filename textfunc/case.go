// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Test cases are txtar archives with three files:
//
//	-- machine.toml --   the machine environment
//	-- func --           the function, in the form read by ParseFunc
//	-- want --           either the FormatOutput listing or
//	                     "error: <kind>"
//
// Anything before the first file is a free-form comment.

package textfunc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/txtar"

	"github.com/s48/regalloc/regalloc"
)

const (
	machineFile = "machine.toml"
	funcFile    = "func"
	wantFile    = "want"
)

type CaseT struct {
	Name    string
	Comment string
	Env     *regalloc.MachineEnvT
	Func    *FuncT
	Want    string
	archive *txtar.Archive
}

func ReadCase(path string) (*CaseT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read case")
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	c, err := ParseCase(name, data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return c, nil
}

func ParseCase(name string, data []byte) (*CaseT, error) {
	archive := txtar.Parse(data)
	c := &CaseT{Name: name, Comment: string(archive.Comment), archive: archive}
	found := map[string]bool{}
	for _, file := range archive.Files {
		found[file.Name] = true
		switch file.Name {
		case machineFile:
			env, err := regalloc.ParseMachineEnv(file.Data)
			if err != nil {
				return nil, err
			}
			c.Env = env
		case funcFile:
			f, err := ParseFunc(string(file.Data))
			if err != nil {
				return nil, err
			}
			c.Func = f
		case wantFile:
			c.Want = string(file.Data)
		default:
			return nil, errors.Errorf("unexpected file %q in case", file.Name)
		}
	}
	for _, required := range []string{machineFile, funcFile} {
		if !found[required] {
			return nil, errors.Errorf("case has no %q file", required)
		}
	}
	return c, nil
}

// Error cases want "error: <kind>", with the kind as printed by
// regalloc.ErrorKindT.

func (c *CaseT) WantsError() (string, bool) {
	want := strings.TrimSpace(c.Want)
	kind, found := strings.CutPrefix(want, "error: ")
	return kind, found
}

// The archive with 'want' replaced, for updating golden files.

func (c *CaseT) Format(want string) []byte {
	archive := &txtar.Archive{Comment: c.archive.Comment}
	replaced := false
	for _, file := range c.archive.Files {
		if file.Name == wantFile {
			file.Data = []byte(want)
			replaced = true
		}
		archive.Files = append(archive.Files, file)
	}
	if !replaced {
		archive.Files = append(archive.Files, txtar.File{Name: wantFile, Data: []byte(want)})
	}
	return txtar.Format(archive)
}

func WriteCase(path string, c *CaseT, want string) error {
	data := c.Format(want)
	old, err := os.ReadFile(path)
	if err == nil && bytes.Equal(old, data) {
		return nil
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "failed to write case")
}

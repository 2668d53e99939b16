package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// CompileContracts compiles every field of the top-level "contract"
// struct of v, in declaration order. A value without contracts yields an
// empty slice.
func CompileContracts(v cue.Value) ([]*Contract, error) {
	contracts := []*Contract{}
	cv := v.LookupPath(cue.ParsePath("contract"))
	if !cv.Exists() {
		return contracts, nil
	}
	iter, err := cv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		c, err := CompileContract(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("contract.%s: %w", iter.Label(), err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// CompileFile compiles the contracts of a single CUE file.
func CompileFile(path string) ([]*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileContracts(v)
}

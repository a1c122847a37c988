package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/urfave/cli"
)

var errDumpsDiffer = errors.New("dumps differ")

func compareDumps(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError("two dump files or directories are expected", 1)
	}
	a, b := ctx.Args().Get(0), ctx.Args().Get(1)
	astat, err := os.Stat(a)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	bstat, err := os.Stat(b)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	switch {
	case astat.Mode().IsRegular() && bstat.Mode().IsRegular():
		err = compareFiles(ctx.App.Writer, a, b)
	case astat.IsDir() && bstat.IsDir():
		err = compareDirs(ctx.App.Writer, a, b)
	default:
		err = errors.New("both parameters must be either dump files or directories")
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	_, _ = fmt.Fprintln(ctx.App.Writer, "dumps are equal")
	return nil
}

// dumpFiles returns dump file paths relative to dir in a stable order.
func dumpFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "BlockStorage_*", "dump-block-*.json"))
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil, err
		}
		res = append(res, rel)
	}
	sort.Strings(res)
	return res, nil
}

func compareDirs(w io.Writer, a, b string) error {
	filesA, err := dumpFiles(a)
	if err != nil {
		return err
	}
	filesB, err := dumpFiles(b)
	if err != nil {
		return err
	}
	if len(filesA) != len(filesB) {
		return fmt.Errorf("dump directories differ in size: %d vs %d files", len(filesA), len(filesB))
	}
	for i := range filesA {
		if filesA[i] != filesB[i] {
			return fmt.Errorf("file set mismatch: %s vs %s", filesA[i], filesB[i])
		}
		if err := compareFiles(w, filepath.Join(a, filesA[i]), filepath.Join(b, filesB[i])); err != nil {
			return fmt.Errorf("file %s: %w", filesA[i], err)
		}
	}
	return nil
}

func compareFiles(w io.Writer, a, b string) error {
	dumpA, err := readFile(a)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", a, err)
	}
	dumpB, err := readFile(b)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", b, err)
	}
	if len(*dumpA) != len(*dumpB) {
		return fmt.Errorf("dump files differ in size: %d vs %d", len(*dumpA), len(*dumpB))
	}
	for i := range *dumpA {
		blockA, blockB := &(*dumpA)[i], &(*dumpB)[i]
		if blockA.Block.Index != blockB.Block.Index {
			return fmt.Errorf("block number mismatch: %d vs %d", blockA.Block.Index, blockB.Block.Index)
		}
		if len(blockA.Calls) != len(blockB.Calls) {
			return fmt.Errorf("block %d, calls number mismatch: %d vs %d", blockA.Block.Index, len(blockA.Calls), len(blockB.Calls))
		}
		if blockA.Block.Hash() == blockB.Block.Hash() && sameLogs(blockA, blockB) {
			continue
		}
		if err := writeDiff(w, a, b, blockA, blockB); err != nil {
			return err
		}
		return fmt.Errorf("block %d: %w", blockA.Block.Index, errDumpsDiffer)
	}
	return nil
}

func sameLogs(a, b *blockDump) bool {
	ja, errA := json.Marshal(a.Calls)
	jb, errB := json.Marshal(b.Calls)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

func writeDiff(w io.Writer, nameA, nameB string, a, b *blockDump) error {
	ja, err := json.MarshalIndent(a, "", " ")
	if err != nil {
		return err
	}
	jb, err := json.MarshalIndent(b, "", " ")
	if err != nil {
		return err
	}
	return difflib.WriteUnifiedDiff(w, difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(ja)),
		B:        difflib.SplitLines(string(jb)),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	})
}

package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/kittychain/cli/options"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// blocksPerFile is the number of blocks stored in a single dump file.
const blocksPerFile = 1000

type dump []blockDump

type blockDump struct {
	Block *state.Block  `json:"block"`
	Calls state.ExecLog `json:"calls"`
}

func newDump() *dump {
	return new(dump)
}

func (d *dump) add(b *state.Block, l state.ExecLog) {
	*d = append(*d, blockDump{Block: b, Calls: l})
}

func (d *dump) tryPersist(prefix string, index uint32) error {
	if len(*d) == 0 {
		return nil
	}
	path, err := getPath(prefix, index)
	if err != nil {
		return err
	}
	old, err := readFile(path)
	if err == nil {
		*old = append(*old, *d...)
	} else {
		old = d
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", " ")
	if err := enc.Encode(*old); err != nil {
		return err
	}

	*d = (*d)[:0]

	return nil
}

func readFile(path string) (*dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := newDump()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}
	return d, err
}

// getPath returns filename for storing blocks up to index.
// Directory structure is the following:
// Dir `BlockStorage_$DIRNO` contains blocks up to $DIRNO (from $DIRNO-100k)
// Inside it there are files grouped by 1k blocks.
// File dump-block-$FILENO.json contains blocks from $FILENO-999, $FILENO
// Example: file `BlockStorage_100000/dump-block-6000.json` contains blocks from 5001 to 6000.
func getPath(prefix string, index uint32) (string, error) {
	dirN := ((index + 99999) / 100000) * 100000
	dir := fmt.Sprintf("BlockStorage_%d", dirN)

	path := filepath.Join(prefix, dir)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		err := os.MkdirAll(path, os.ModePerm)
		if err != nil {
			return "", err
		}
	} else if !info.IsDir() {
		return "", fmt.Errorf("file `%s` is not a directory", path)
	}

	fileN := ((index + blocksPerFile - 1) / blocksPerFile) * blocksPerFile
	file := fmt.Sprintf("dump-block-%d.json", fileN)
	return filepath.Join(path, file), nil
}

func dumpDB(ctx *cli.Context) error {
	if err := cmdargsEmpty(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, logCloser, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if logCloser != nil {
		defer func() { _ = logCloser() }()
	}

	chain, err := initBlockChain(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = chain.Close() }()

	var (
		start  = uint32(ctx.Uint("start"))
		count  = uint32(ctx.Uint("count"))
		prefix = ctx.String("out")
		height = chain.BlockHeight()
	)
	if start > height {
		return cli.NewExitError(fmt.Errorf("start block %d is above the chain height %d", start, height), 1)
	}
	if count == 0 || count > height-start+1 {
		count = height - start + 1
	}

	d := newDump()
	for i := start; i < start+count; i++ {
		b, err := chain.GetBlock(i)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("failed to get block %d: %w", i, err), 1)
		}
		l, err := chain.GetExecLog(i)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("failed to get execution log of block %d: %w", i, err), 1)
		}
		d.add(b, l)
		if i%blocksPerFile == 0 || i == start+count-1 {
			if err := d.tryPersist(prefix, i); err != nil {
				return cli.NewExitError(fmt.Errorf("can't dump block %d: %w", i, err), 1)
			}
		}
	}
	log.Info("blocks dumped", zap.Uint32("start", start), zap.Uint32("count", count))
	return nil
}

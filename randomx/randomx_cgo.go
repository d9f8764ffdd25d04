//go:build cgo && enable_randomx_library && !purego

package randomx

import (
	"errors"
	"runtime"
	"sync"

	randomx "git.gammaspectra.live/P2Pool/randomx-go-bindings"

	"github.com/weavesuite/weave-mining-server/utils"
)

// engineState wraps the native RandomX library. A single VM guarded by a
// mutex keeps the native call sites simple; Hash calls from all stage
// workers are serialized on it.
type engineState struct {
	lock    sync.Mutex
	dataset *randomx.RxDataset
	vm      *randomx.RxVM
	mode    Mode
}

func applyFlags(flags []Flag, mode Mode) randomx.Flag {
	apply := randomx.GetFlags()
	for _, f := range flags {
		switch f {
		case FlagJIT:
			apply |= randomx.FlagJIT
		case FlagLargePages:
			apply |= randomx.FlagLargePages
		case FlagHardAES:
			apply |= randomx.FlagHardAES
		case FlagSecure:
			apply |= randomx.FlagSecure
		}
	}
	if mode == ModeFast {
		apply |= randomx.FlagFullMEM
	}
	return apply
}

func newEngine(cfg *Config) (Engine, error) {
	flags := applyFlags(cfg.Flags, cfg.Mode)

	dataset, err := randomx.NewRxDataset(flags)
	if err != nil {
		return nil, err
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if ok := dataset.GoInit(cfg.Key, uint32(threads)); !ok {
		dataset.Close()
		return nil, errors.New("could not initialize randomx dataset")
	}

	vm, err := randomx.NewRxVM(dataset, flags)
	if err != nil {
		dataset.Close()
		return nil, err
	}

	return &engineState{
		dataset: dataset,
		vm:      vm,
		mode:    cfg.Mode,
	}, nil
}

func (e *engineState) Hash(input []byte) (output utils.Hash) {
	e.lock.Lock()
	defer e.lock.Unlock()
	outputBuf := e.vm.CalcHash(input)
	copy(output[:], outputBuf[:])
	runtime.KeepAlive(input)
	return
}

func (e *engineState) Mode() Mode { return e.mode }

func (e *engineState) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.vm != nil {
		e.vm.Close()
	}
	e.dataset.Close()
}

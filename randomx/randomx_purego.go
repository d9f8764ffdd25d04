//go:build !cgo || !enable_randomx_library || purego

package randomx

import (
	"fmt"
	"runtime"
	"sync"

	randomx "git.gammaspectra.live/P2Pool/go-randomx/v4"

	"github.com/weavesuite/weave-mining-server/utils"
)

// engineState backs the engine with the pure Go RandomX implementation when
// the native library is not compiled in.
type engineState struct {
	lock    sync.Mutex
	cache   *randomx.Cache
	dataset *randomx.Dataset
	vm      *randomx.VM
	mode    Mode
}

func applyFlags(flags []Flag, mode Mode) randomx.Flags {
	apply := randomx.GetFlags()
	for _, f := range flags {
		switch f {
		case FlagJIT:
			apply |= randomx.RANDOMX_FLAG_JIT
		case FlagLargePages:
			apply |= randomx.RANDOMX_FLAG_LARGE_PAGES
		case FlagHardAES:
			apply |= randomx.RANDOMX_FLAG_HARD_AES
		case FlagSecure:
			apply |= randomx.RANDOMX_FLAG_SECURE
		}
	}
	if mode == ModeFast {
		apply |= randomx.RANDOMX_FLAG_FULL_MEM
	}
	return apply
}

func newEngine(cfg *Config) (Engine, error) {
	flags := applyFlags(cfg.Flags, cfg.Mode)

	e := &engineState{mode: cfg.Mode}

	var err error
	e.cache, err = randomx.NewCache(flags)
	if err != nil {
		return nil, err
	}
	e.cache.Init(cfg.Key)

	if cfg.Mode == ModeFast {
		if e.dataset, err = randomx.NewDataset(flags); err != nil {
			e.Close()
			return nil, fmt.Errorf("couldn't initialize dataset: %w", err)
		}
		threads := cfg.Threads
		if threads <= 0 {
			threads = runtime.GOMAXPROCS(0)
		}
		e.dataset.InitDatasetParallel(e.cache, threads)
	}

	if e.vm, err = randomx.NewVM(flags, e.cache, e.dataset); err != nil {
		e.Close()
		return nil, fmt.Errorf("couldn't initialize vm: %w", err)
	}

	return e, nil
}

func (e *engineState) Hash(input []byte) (output utils.Hash) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.vm.CalculateHash(input, (*[32]byte)(&output))
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
	if e.dataset != nil {
		e.dataset.Close()
	}
	if e.cache != nil {
		e.cache.Close()
	}
}

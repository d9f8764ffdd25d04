package randomx

import (
	"errors"

	"github.com/weavesuite/weave-mining-server/utils"
)

// Mode defines the kind of engine state backing a hashing instance.
type Mode int

const (
	// ModeFast keeps the full RandomX dataset in memory. Mining
	// requires it; initialization takes a while and a few GiB.
	ModeFast Mode = iota

	// ModeLight runs from the cache only. Good enough for validating
	// other miners' blocks, far too slow to mine with. A manager handed
	// a light engine refuses to start and retries until fast state
	// appears.
	ModeLight

	// ModeFake substitutes a plain chain hash for RandomX. This mode is
	// only intended for tests and simulations: deterministic, fast, and
	// shared between the mining and validating paths so round-trip
	// tests close.
	ModeFake
)

// Flag toggles optional RandomX features. They map onto the flags of the
// backing implementation; unsupported ones are ignored there.
type Flag int

const (
	FlagJIT Flag = 1 << iota
	FlagLargePages
	FlagHardAES
	FlagSecure
)

// Config carries everything needed to initialize an engine.
type Config struct {
	// Key seeds the RandomX cache/dataset. On the reference network it
	// is derived from a checkpoint block hash.
	Key []byte

	Mode Mode

	// Threads bounds dataset-initialization parallelism in fast mode.
	Threads int

	Flags []Flag
}

// Engine is a handle to initialized RandomX state.
//
// Hash is safe for concurrent use; the backends serialize access to the
// underlying VM. Close releases the native state and must not race with
// in-flight Hash calls.
type Engine interface {
	Hash(input []byte) utils.Hash
	Mode() Mode
	Close()
}

// ErrNoFastState is returned by helpers that require ModeFast.
var ErrNoFastState = errors.New("randomx fast-mode state not initialized")

// New initializes an engine per the config. Fake mode never fails; the real
// modes surface allocation/initialization errors from the backend.
func New(cfg *Config) (Engine, error) {
	if cfg.Mode == ModeFake {
		return fakeEngine{}, nil
	}
	return newEngine(cfg)
}

// fakeEngine hashes with the chain hash function instead of RandomX,
// mirroring the fake proof-of-work mode of the ethash-family engines.
type fakeEngine struct{}

func (fakeEngine) Hash(input []byte) utils.Hash {
	return utils.ChainHash(input)
}

func (fakeEngine) Mode() Mode { return ModeFake }

func (fakeEngine) Close() {}

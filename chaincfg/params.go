package chaincfg

// Params is used to group parameters for various networks such as the main
// network and test networks.
//
// The SPoRA fields are wire-compatibility constants: a node whose values
// differ from the reference network derives different recall bytes and
// different solution preimages, and every block it mines is rejected.
type Params struct {
	Name        string
	DefaultPort string

	// ChunkSize is the fixed size of a weave chunk in bytes.
	ChunkSize int64

	// SporaSubspacesCount is the number of equal partitions of the
	// search space. The subspace number is selected by the low bits
	// of H0.
	SporaSubspacesCount int64

	// SearchSpaceUpperBoundDepth is how many blocks behind the tip the
	// search-space upper bound lives.
	SearchSpaceUpperBoundDepth int64

	// SearchSpaceDivisor is the fraction of the weave eligible for
	// search each round (weave size / divisor).
	SearchSpaceDivisor int64

	// TimestampFieldSizeLimit is the big-endian width, in bytes, of the
	// timestamp inside the solution-hash preimage.
	TimestampFieldSizeLimit int

	// MiningTimestampRefreshInterval is the number of seconds between
	// candidate timestamp refreshes.
	MiningTimestampRefreshInterval int64

	// RetargetBlocks is the number of blocks between difficulty
	// retargets.
	RetargetBlocks int64

	// TargetTimePerBlock is the desired number of seconds between
	// consecutive blocks, used by the retarget arithmetic.
	TargetTimePerBlock int64

	// RetargetToleranceFactor bounds a single retarget step. The new
	// difficulty may change the expected hash count by at most this
	// factor in either direction.
	RetargetToleranceFactor int64

	// StoreBlocksBehindCurrent is the number of recent blocks whose
	// data a miner is expected to hold.
	StoreBlocksBehindCurrent int64

	// RandomxDiffAdjustment is the one-off difficulty divisor applied
	// at the RandomX activation height.
	RandomxDiffAdjustment int64

	// LinearDiffActivationHeight is the height after which a solution
	// is valid iff its hash, read as a big-endian 256-bit integer,
	// numerically exceeds the difficulty. Heights at or below it used
	// the legacy leading-zero-bits form, which this implementation
	// does not mine for.
	LinearDiffActivationHeight int64

	// SubsidyReductionInterval is the number of blocks between halvings
	// of the base mining reward.
	SubsidyReductionInterval int64
}

// MainNetParams contains parameters on the main network.
var MainNetParams = Params{
	Name:                           "mainnet",
	DefaultPort:                    "1984",
	ChunkSize:                      256 * 1024,
	SporaSubspacesCount:            1024,
	SearchSpaceUpperBoundDepth:     50,
	SearchSpaceDivisor:             10,
	TimestampFieldSizeLimit:        12,
	MiningTimestampRefreshInterval: 10,
	RetargetBlocks:                 10,
	TargetTimePerBlock:             120,
	RetargetToleranceFactor:        4,
	StoreBlocksBehindCurrent:       50,
	RandomxDiffAdjustment:          2,
	LinearDiffActivationHeight:     269510,
	SubsidyReductionInterval:       400_000,
}

// TestNet3Params contains parameters on the test network.
var TestNet3Params = Params{
	Name:                           "testnet3",
	DefaultPort:                    "11984",
	ChunkSize:                      256 * 1024,
	SporaSubspacesCount:            1024,
	SearchSpaceUpperBoundDepth:     50,
	SearchSpaceDivisor:             10,
	TimestampFieldSizeLimit:        12,
	MiningTimestampRefreshInterval: 10,
	RetargetBlocks:                 10,
	TargetTimePerBlock:             120,
	RetargetToleranceFactor:        4,
	StoreBlocksBehindCurrent:       50,
	RandomxDiffAdjustment:          2,
	LinearDiffActivationHeight:     300,
	SubsidyReductionInterval:       400_000,
}

// SimNetParams contains parameters specific to the simulation test network.
// The short refresh interval and shallow search space keep simulated rounds
// fast enough for integration tests.
var SimNetParams = Params{
	Name:                           "simnet",
	DefaultPort:                    "18888",
	ChunkSize:                      256 * 1024,
	SporaSubspacesCount:            1024,
	SearchSpaceUpperBoundDepth:     2,
	SearchSpaceDivisor:             10,
	TimestampFieldSizeLimit:        12,
	MiningTimestampRefreshInterval: 2,
	RetargetBlocks:                 10,
	TargetTimePerBlock:             2,
	RetargetToleranceFactor:        4,
	StoreBlocksBehindCurrent:       2,
	RandomxDiffAdjustment:          2,
	LinearDiffActivationHeight:     0,
	SubsidyReductionInterval:       400_000,
}

var ActiveNetParams = &MainNetParams

var ServerBackendVersion = "unknown"

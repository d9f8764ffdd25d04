package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/utils"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "mining-server.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "weave-mining-server.log"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultDbAddress      = "127.0.0.1:3306"
	defaultDatabaseName   = "weave_mining"
	defaultStatListen     = "127.0.0.1:2984"
	defaultIOWorkers      = 2
	defaultBulkIterations = 64
)

var (
	defaultHomeDir    = utils.AppDataDir("weave-mining-server", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	netParams         = &chaincfg.MainNetParams
)

// config defines the configuration options for the mining server.
//
// See loadConfig for details on the configuration load process.
type config struct {
	AppDataDir          string `short:"A" long:"appdata" description:"Application data directory for mining server config and logs"`
	ConfigFile          string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir             string `long:"datadir" description:"Directory holding the weave chunks, indexes and wallet database"`
	DebugLevel          string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	LogDir              string `long:"logdir" description:"Directory to log output."`
	MiningAddr          string `long:"miningaddr" description:"Address receiving the finder reward of mined blocks"`
	StageOneWorkers     int    `long:"stageoneworkers" description:"Number of first-stage (RandomX) hashing workers. 0 picks a value from the core count when --stagetwoworkers is also 0, otherwise 1"`
	StageTwoWorkers     int    `long:"stagetwoworkers" description:"Number of second-stage (chunk hashing) workers. 0 picks a value from the core count when --stageoneworkers is also 0, otherwise 1"`
	IOWorkers           int    `long:"ioworkers" description:"Number of chunk I/O workers, typically one per storage spindle (default: 2)"`
	BulkIterations      int    `long:"bulkiterations" description:"RandomX iterations per stage-one batch (default: 64)"`
	UseDataIndex        bool   `long:"usedataindex" description:"Fall back to the secondary data index when a chunk misses the primary index"`
	RandomxKey          string `long:"randomxkey" description:"Hex seed for the RandomX state. Must match the reference network"`
	RandomxLight        bool   `long:"randomxlight" description:"Initialize RandomX in light mode only (mining will wait for fast state)"`
	RandomxJIT          bool   `long:"randomxjit" description:"Enable the RandomX JIT"`
	RandomxHWAES        bool   `long:"randomxhwaes" description:"Enable RandomX hardware AES"`
	LargePages          bool   `long:"largepages" description:"Back the RandomX dataset with large pages"`
	DbUsername          string `long:"dbusername" description:"username which is used to connect with database"`
	DbPassword          string `long:"dbpassword" description:"password which is used to connect with database"`
	DbAddress           string `long:"dbaddress" description:"ip address and port of database (default: 127.0.0.1:3306)"`
	DbName              string `long:"dbname" description:"name of server database (default: weave_mining)"`
	DisableDB           bool   `long:"nodb" description:"Disable recording mined blocks in the database"`
	DisableAutoCreateDB bool   `long:"noautocreatedb" description:"Disable creating database and table automatically"`
	StatListen          string `long:"statlisten" description:"Interface/port the websocket stat server listens on (default: 127.0.0.1:2984)"`
	DisableStats        bool   `long:"nostats" description:"Disable the websocket stat server"`
	ProfilePort         string `long:"profileport" description:"Enable HTTP profiling on the given port"`
	TestNet3            bool   `long:"testnet" description:"Use the test network"`
	SimNet              bool   `long:"simnet" description:"Use the simulation test network"`
	ShowVersion         bool   `short:"V" long:"version" description:"Display version information and exit"`
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	return parser
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		AppDataDir:     defaultHomeDir,
		ConfigFile:     defaultConfigFile,
		DataDir:        defaultDataDir,
		DebugLevel:     defaultLogLevel,
		LogDir:         defaultLogDir,
		IOWorkers:      defaultIOWorkers,
		BulkIterations: defaultBulkIterations,
		DbAddress:      defaultDbAddress,
		DbName:         defaultDatabaseName,
		StatListen:     defaultStatListen,
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			chaincfg.ServerBackendVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	if preCfg.ConfigFile != defaultConfigFile || fileExists(preCfg.ConfigFile) {
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				fmt.Fprintln(os.Stderr, err)
				return nil, nil, err
			}
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if cfg.TestNet3 {
		numNets++
		netParams = &chaincfg.TestNet3Params
	}
	if cfg.SimNet {
		numNets++
		netParams = &chaincfg.SimNetParams
	}
	if numNets > 1 {
		err := errors.New("the testnet and simnet params can't be used together -- choose one of the two")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	chaincfg.ActiveNetParams = netParams

	if cfg.MiningAddr == "" {
		err := errors.New("a mining address (--miningaddr) is required to receive the finder reward")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Append the network type to the data/log directories so it is
	// "namespaced" per network.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, netParams.Name)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, netParams.Name)

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", "loadConfig", err.Error())
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Split the hashing cores between the two stages when not pinned by
	// configuration, reserving one core for the controller and I/O
	// dispatch.
	hashingCores := runtime.NumCPU() - 1
	if hashingCores < 2 {
		hashingCores = 2
	}
	if cfg.StageOneWorkers <= 0 && cfg.StageTwoWorkers <= 0 {
		cfg.StageOneWorkers = (hashingCores + 1) / 2
		cfg.StageTwoWorkers = hashingCores - cfg.StageOneWorkers
	} else if cfg.StageOneWorkers <= 0 {
		cfg.StageOneWorkers = 1
	} else if cfg.StageTwoWorkers <= 0 {
		cfg.StageTwoWorkers = 1
	}
	if cfg.StageOneWorkers+cfg.StageTwoWorkers > runtime.NumCPU()-1 && runtime.NumCPU() > 2 {
		srvrLog.Warnf("Configured %v hashing workers on %v cores; expect contention with the controller",
			cfg.StageOneWorkers+cfg.StageTwoWorkers, runtime.NumCPU())
	}
	if cfg.IOWorkers <= 0 {
		cfg.IOWorkers = defaultIOWorkers
	}

	return &cfg, remainingArgs, nil
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

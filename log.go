// Copyright (c) 2022 The Weavesuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/weavesuite/weave-mining-server/chunkstore"
	"github.com/weavesuite/weave-mining-server/dal"
	"github.com/weavesuite/weave-mining-server/miningmgr"
	"github.com/weavesuite/weave-mining-server/statserver"
	"github.com/weavesuite/weave-mining-server/txpool"
	"github.com/weavesuite/weave-mining-server/utils"
	"github.com/weavesuite/weave-mining-server/walletstore"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by calling
// initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	// The backend must not be used before the log rotator has been initialized,
	// or data races and/or nil pointer dereferences will occur.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	srvrLog  = backendLog.Logger("SRVR")
	mineLog  = backendLog.Logger("MINE")
	chnkLog  = backendLog.Logger("CHNK")
	txplLog  = backendLog.Logger("TXPL")
	waltLog  = backendLog.Logger("WALT")
	dalLog   = backendLog.Logger("DAL")
	statLog  = backendLog.Logger("STAT")
	utilsLog = backendLog.Logger("UTILS")
)

// Initialize package-global logger variables.
func init() {
	miningmgr.UseLogger(mineLog)
	chunkstore.UseLogger(chnkLog)
	txpool.UseLogger(txplLog)
	walletstore.UseLogger(waltLog)
	dal.UseLogger(dalLog)
	statserver.UseLogger(statLog)
	utils.UseLogger(utilsLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"SRVR":  srvrLog,
	"MINE":  mineLog,
	"CHNK":  chnkLog,
	"TXPL":  txplLog,
	"WALT":  waltLog,
	"DAL":   dalLog,
	"STAT":  statLog,
	"UTILS": utilsLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 30)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	logRotator = r
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// pickNoun returns the singular or plural form of a noun depending
// on the count n.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

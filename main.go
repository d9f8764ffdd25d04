package main

import (
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/weavesuite/weave-mining-server/dal"

	"gorm.io/gorm"
)

var (
	cfg *config
)

func startProfileServer() {
	listenAddr := net.JoinHostPort("localhost", cfg.ProfilePort)
	srvrLog.Infof("Profile server listening on %s", listenAddr)
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	srvrLog.Errorf("%v", http.ListenAndServe(listenAddr, mux))
}

func serverMain() error {

	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg

	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	defer srvrLog.Info("Shutdown complete")

	// Enable http profiling server if requested.
	if cfg.ProfilePort != "" {
		go func() {
			startProfileServer()
		}()
	}

	// Initiate the database recording mined blocks, unless disabled.
	var db *gorm.DB
	if !cfg.DisableDB {
		err = dal.InitDB(&dal.DBConfig{
			Username:     cfg.DbUsername,
			Password:     cfg.DbPassword,
			Address:      cfg.DbAddress,
			DatabaseName: cfg.DbName,
		}, !cfg.DisableAutoCreateDB)
		if err != nil {
			return err
		}
		db = dal.GlobalDBClient
	}

	// Create and start the server: chunk store, wallet store, tx pool,
	// RandomX state and the mining manager.
	svr, err := newServer(db)
	if err != nil {
		return err
	}

	if err := svr.Start(); err != nil {
		svr.Stop()
		return err
	}

	addInterruptHandler(func() {
		svr.Stop()
	})

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems (such as a
	// completed mining round).
	<-interruptHandlersDone
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Hashing and chunk fetching cause bursty allocations.  This
	// limits the garbage collector from excessively overallocating during
	// bursts.
	debug.SetGCPercent(10)

	if err := serverMain(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

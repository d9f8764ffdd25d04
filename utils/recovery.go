package utils

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

const panicFilePrefix = "panic_dump"

// MyRecover converts a panic in a long-running goroutine into a stack dump
// on disk so a crashed worker leaves something to debug with.
func MyRecover() {
	err := recover()
	if err == nil {
		return
	}

	var buf [8192]byte
	n := runtime.Stack(buf[:], false)
	trace := string(buf[:n])

	fmt.Printf("%v\nStack Trace ==> %s\nRecovering...\n", err, trace)
	_ = DumpPanicInfo(fmt.Sprintf("%v\n%s", err, trace))
}

// DumpPanicInfo writes panic details to a timestamped file in the working
// directory.
func DumpPanicInfo(info string) error {
	now := time.Now()
	fileName := fmt.Sprintf("%s_%s_%d", panicFilePrefix,
		now.Format("20060102150405"), now.Unix())
	log.Infof("Dumping panic info to %v...", fileName)
	if err := os.WriteFile(fileName, []byte(info), 0666); err != nil {
		log.Errorf("Unable to write panic file %v", fileName)
		return err
	}
	return nil
}

// Package testlogger builds loggers for tests.
package testlogger

import (
	"os"
	"testing"

	"github.com/drand/dlproof/common/log"
)

// Level returns the test log level: debug when DLPROOF_TEST_LOGS=DEBUG, warn
// otherwise so passing test runs stay quiet.
func Level(t testing.TB) int {
	debugEnv, isDebug := os.LookupEnv("DLPROOF_TEST_LOGS")
	if isDebug && debugEnv == "DEBUG" {
		t.Log("Enabling DebugLevel logs")
		return log.DebugLevel
	}
	return log.WarnLevel
}

// New returns a logger tagged with the running test name.
func New(t testing.TB) log.Logger {
	return log.New(nil, Level(t), true).With("testName", t.Name())
}

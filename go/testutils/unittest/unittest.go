// Package unittest categorizes tests by size and external requirements.
package unittest

import (
	"flag"
	"os"

	"github.com/kodariks/iot-webapp/go/sktest"
)

const (
	SMALL_TEST  = "small"
	MEDIUM_TEST = "medium"
	LARGE_TEST  = "large"
)

var (
	small  = flag.Bool(SMALL_TEST, false, "Whether or not to run small tests.")
	medium = flag.Bool(MEDIUM_TEST, false, "Whether or not to run medium tests.")
	large  = flag.Bool(LARGE_TEST, false, "Whether or not to run large tests.")

	// DEFAULT_RUN indicates whether the given test type runs by default
	// when no filter flag is specified. Large tests talk to real Cloud
	// projects and only run when asked for.
	DEFAULT_RUN = map[string]bool{
		SMALL_TEST:  true,
		MEDIUM_TEST: true,
		LARGE_TEST:  false,
	}
)

// ShouldRun determines whether the test should run based on the provided flags.
func ShouldRun(testType string) bool {
	if !*small && !*medium && !*large {
		return DEFAULT_RUN[testType]
	}
	switch testType {
	case SMALL_TEST:
		return *small
	case MEDIUM_TEST:
		return *medium
	case LARGE_TEST:
		return *large
	}
	return false
}

// SmallTest is a function which should be called at the beginning of a small
// test: A test (under 2 seconds) with no dependencies on external databases,
// networks, etc.
func SmallTest(t sktest.TestingT) {
	if !ShouldRun(SMALL_TEST) {
		t.Skip("Not running small tests.")
	}
}

// MediumTest is a function which should be called at the beginning of an
// medium-sized test: a test (2-15 seconds) which has dependencies on
// in-process emulators, local servers, etc.
func MediumTest(t sktest.TestingT) {
	if !ShouldRun(MEDIUM_TEST) {
		t.Skip("Not running medium tests.")
	}
}

// LargeTest is a function which should be called at the beginning of a large
// test: one which talks to a real Cloud project. These only run when the
// --large flag is set.
func LargeTest(t sktest.TestingT) {
	if !ShouldRun(LARGE_TEST) {
		t.Skip("Not running large tests.")
	}
}

// RequiresEnv skips the test unless every named environment variable is set.
func RequiresEnv(t sktest.TestingT, names ...string) {
	for _, name := range names {
		if os.Getenv(name) == "" {
			t.Skipf("Not running: %s is not set.", name)
		}
	}
}

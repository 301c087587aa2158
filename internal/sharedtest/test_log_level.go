package sharedtest

import (
	"os"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// NewTestLoggers returns the loggers used by unit tests. Output is off unless SITESYNC_TEST_LOG_LEVEL
// names a level ("debug", "info", "warn" or "error"); "go test" only shows it for failing tests.
func NewTestLoggers() ldlog.Loggers {
	ret := ldlog.NewDefaultLoggers()
	ret.SetMinLevel(testLogLevel(os.Getenv("SITESYNC_TEST_LOG_LEVEL")))
	return ret
}

func testLogLevel(name string) ldlog.LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return ldlog.Debug
	case "info":
		return ldlog.Info
	case "warn":
		return ldlog.Warn
	case "error":
		return ldlog.Error
	default:
		return ldlog.None
	}
}

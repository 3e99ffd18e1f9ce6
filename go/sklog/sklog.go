// Package sklog defines the process-wide logging functions (Info, Errorf,
// etc.). Where the lines end up is decided by the sklogimpl.Logger
// installed with sklogimpl.SetLogger; stderr by default.
package sklog

import (
	"os"

	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
	"github.com/kodariks/iot-webapp/go/sklog/stdlogging"
)

// SetLogger must run in init, otherwise an early log call finds a nil Logger.
func init() {
	sklogimpl.SetLogger(stdlogging.New(os.Stderr))
}

// Functions ending in f use fmt.Sprintf to format the arguments, the others
// use fmt.Sprint. Functions ending in WithDepth start the reported location
// depth frames above the caller.
func Debug(msg ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Debug, "", msg...)
}

func Debugf(format string, v ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Debug, format, v...)
}

func Info(msg ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Info, "", msg...)
}

func Infof(format string, v ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Info, format, v...)
}

func Warning(msg ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Warning, "", msg...)
}

func Warningf(format string, v ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Warning, format, v...)
}

func Error(msg ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Error, "", msg...)
}

func Errorf(format string, v ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Error, format, v...)
}

func ErrorfWithDepth(depth int, format string, v ...interface{}) {
	sklogimpl.Log(1+depth, sklogimpl.Error, format, v...)
}

// Fatal* exit the program after logging.
func Fatal(msg ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Fatal, "", msg...)
}

func Fatalf(format string, v ...interface{}) {
	sklogimpl.Log(1, sklogimpl.Fatal, format, v...)
}

func Flush() {
	sklogimpl.Flush()
}

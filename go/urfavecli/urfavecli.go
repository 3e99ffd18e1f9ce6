// Package urfavecli contains helpers for CLI applications built on
// github.com/urfave/cli/v2.
package urfavecli

import (
	"sort"

	cli "github.com/urfave/cli/v2"

	"github.com/kodariks/iot-webapp/go/sklog"
)

// LogFlags logs the value of every flag visible to the command that is
// running, one line per flag, in name order.
func LogFlags(c *cli.Context) {
	names := map[string]bool{}
	var flags []cli.Flag
	if c.Command != nil {
		flags = append(flags, c.Command.Flags...)
	}
	if c.App != nil {
		flags = append(flags, c.App.Flags...)
	}
	for _, f := range flags {
		if n := f.Names(); len(n) > 0 {
			names[n[0]] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		sklog.Infof("Flags: --%s=%v", name, c.Value(name))
	}
}

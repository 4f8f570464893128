package flags

import (
	"slices"
	"strings"

	"github.com/urfave/cli"
)

// eachName calls fn for every comma separated name of a flag ("price, p").
func eachName(names string, fn func(string)) {
	for _, name := range strings.Split(names, ",") {
		fn(strings.TrimSpace(name))
	}
}

func hasName(names string, wanted []string) bool {
	var found bool
	eachName(names, func(name string) {
		found = found || slices.Contains(wanted, name)
	})
	return found
}

// MarkRequired returns a copy of flagSet with flags known by any of the given
// names (long or short) marked as required. Only value flags are affected.
func MarkRequired(flagSet []cli.Flag, names ...string) []cli.Flag {
	res := make([]cli.Flag, 0, len(flagSet))
	for _, fl := range flagSet {
		if hasName(fl.GetName(), names) {
			switch f := fl.(type) {
			case cli.StringFlag:
				f.Required = true
				fl = f
			case cli.DurationFlag:
				f.Required = true
				fl = f
			}
		}
		res = append(res, fl)
	}
	return res
}

package internal

import "fmt"

var (
	version      = "0.3.0"
	revision     = "$Format:%h$"
	revisionDate = "$Format:%as$"
)

// Version returns the release plus the build revision when it was stamped in
// with -ldflags "-X github.com/zhengshuai-xiao/xbackup/internal.revision=...".
func Version() string {
	if revision == "" || revision[0] == '$' {
		return version
	}
	return fmt.Sprintf("%s+%s.%s", version, revisionDate, revision)
}

func StringContains(s []string, e string) bool {
	for _, item := range s {
		if item == e {
			return true
		}
	}
	return false
}

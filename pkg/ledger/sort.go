package ledger

import (
	"sort"
	"strconv"
)

// sortEntries orders entries numerically by version. Unparseable versions sort
// last, by string.
func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, errA := strconv.ParseInt(entries[i].VersionNo, 10, 64)
		b, errB := strconv.ParseInt(entries[j].VersionNo, 10, 64)

		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return entries[i].VersionNo < entries[j].VersionNo
		}
	})
}

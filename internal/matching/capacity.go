package matching

import "github.com/spigell/grant-matcher/internal/grants"

const (
	maxResultsCeiling   = 15
	resultsPerStaff     = 3
	unknownStaffResults = 5
)

// MaxResults is how many opportunities an organization can realistically pursue.
// A positive limit narrows it further.
func MaxResults(org *grants.Organization, limit int) int {
	n := unknownStaffResults
	if org.StaffCount > 0 {
		n = min(maxResultsCeiling, org.StaffCount*resultsPerStaff)
	}
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}

func capResults(matches []*Match, n int) []*Match {
	if len(matches) <= n {
		return matches
	}
	return matches[:n]
}

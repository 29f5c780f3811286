package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/spigell/grant-matcher/internal/eligibility"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/textutil"
)

// Neutral defaults used when an input is missing.
const (
	defaultMission     = 50
	defaultGeography   = 60
	defaultBudgetFit   = 55
	defaultCapacity    = 50
	unknownStaff       = 60
	defaultFocus       = 50
	defaultEligibility = 80
	defaultTiming      = 70
	defaultFunder      = 50
	defaultCompetition = 60
)

var (
	faithPhrases    = []string{"faith based", "religious", "church", "churches", "congregation", "congregations", "ministry", "ministries"}
	matchingPhrases = []string{"matching funds", "match requirement", "cost share", "cost sharing", "1 1 match", "dollar for dollar", "required match"}
	invitePhrases   = []string{"by invitation", "invitation only", "invite only", "invited applicants", "unsolicited proposals", "unsolicited applications"}
)

// missionHeuristic is the share of mission keywords found in the opportunity text,
// mapped onto 30..100 so half the keywords is already a full score.
func missionHeuristic(org *grants.Organization, c *grants.Candidate) float64 {
	missionTokens := textutil.Tokens(org.Mission)
	text := c.Text()
	if len(missionTokens) == 0 || strings.TrimSpace(text) == "" {
		return defaultMission
	}

	candidateTokens := textutil.TokenSet(text)
	overlap := 0
	for _, token := range missionTokens {
		if _, ok := candidateTokens[token]; ok {
			overlap++
		}
	}

	ratio := float64(overlap) / float64(len(missionTokens))
	return 30 + 70*math.Min(1, 2*ratio)
}

func geographicMatch(org *grants.Organization, c *grants.Candidate) float64 {
	switch grants.MatchGeography(c.Geography, org) {
	case grants.GeoNational:
		return 90
	case grants.GeoCity:
		return 85
	case grants.GeoState:
		return 80
	case grants.GeoMismatch:
		return 30
	default:
		return defaultGeography
	}
}

// awardRatio is the maximum award as a share of the annual budget.
func awardRatio(org *grants.Organization, c *grants.Candidate) (float64, bool) {
	budget, ok := org.Budget()
	if !ok {
		return 0, false
	}
	award, ok := c.MaxAward()
	if !ok {
		return 0, false
	}
	return award / budget, true
}

func budgetFit(org *grants.Organization, c *grants.Candidate) float64 {
	ratio, ok := awardRatio(org, c)
	if !ok {
		return defaultBudgetFit
	}

	switch {
	case ratio >= 0.10 && ratio <= 0.20:
		return 100
	case ratio >= 0.05 && ratio <= 0.30:
		return 90
	case ratio < 0.05:
		return 60 + 25*(ratio/0.05)
	case ratio <= 0.50:
		return 75 - 35*((ratio-0.30)/0.20)
	default:
		return 20
	}
}

// capacityFit scores whether the staff can manage the award.
func capacityFit(org *grants.Organization, c *grants.Candidate) float64 {
	award, ok := c.MaxAward()
	if !ok {
		return defaultCapacity
	}
	if org.StaffCount <= 0 {
		return unknownStaff
	}

	perStaff := award / float64(org.StaffCount)
	switch {
	case perStaff <= 50_000:
		return 95
	case perStaff <= 100_000:
		return 85
	case perStaff <= 250_000:
		return 65
	default:
		return 40
	}
}

// focusOverlap counts organization focus areas the opportunity addresses, using its tags
// or, when it has none, its text.
func focusOverlap(org *grants.Organization, c *grants.Candidate) int {
	var tagTokens map[string]struct{}
	if len(c.FocusAreas) > 0 {
		tagTokens = textutil.TokenSet(strings.Join(c.FocusAreas, " "))
	} else {
		tagTokens = textutil.TokenSet(c.Title + " " + c.Description)
	}

	overlap := 0
	seen := make(map[string]struct{}, len(org.FocusAreas))
	for _, area := range org.FocusAreas {
		key := textutil.Normalize(area)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		for _, token := range textutil.Tokens(area) {
			if _, ok := tagTokens[token]; ok {
				overlap++
				break
			}
		}
	}
	return overlap
}

func focusAreaMatch(org *grants.Organization, c *grants.Candidate) float64 {
	if len(org.FocusAreas) == 0 {
		return defaultFocus
	}

	switch n := focusOverlap(org, c); {
	case n >= 3:
		return 100
	case n == 2:
		return 90
	case n == 1:
		return 72
	default:
		return 35
	}
}

// eligibilityFit deducts soft mismatches the hard gate lets through.
func eligibilityFit(org *grants.Organization, c *grants.Candidate) float64 {
	score := 100.0
	text := strings.TrimSpace(c.Eligibility)
	if text == "" {
		score = defaultEligibility
	} else {
		if faithMismatch(org, text) {
			score -= 30
		}
		if mentionsAny(text, matchingPhrases) {
			score -= 20
		}
		if mentionsAny(text, invitePhrases) && !org.HasPriorFunder(c.Funder) {
			score -= 40
		}
	}

	if grantTypeMismatch(org, c) {
		score -= 15
	}
	return score
}

func faithMismatch(org *grants.Organization, text string) bool {
	var required, excluded bool
	for _, clause := range eligibility.SplitClauses(text) {
		if textutil.ContainsPhrase(clause, "secular") {
			excluded = true
			continue
		}
		if !mentionsAny(clause, faithPhrases) {
			continue
		}
		if eligibility.IsNegative(clause) {
			excluded = true
		} else {
			required = true
		}
	}
	return (required && !org.FaithBased) || (excluded && org.FaithBased)
}

func grantTypeMismatch(org *grants.Organization, c *grants.Candidate) bool {
	grantType := textutil.Normalize(c.GrantType)
	if grantType == "" || len(org.PreferredGrantTypes) == 0 {
		return false
	}
	for _, preferred := range org.PreferredGrantTypes {
		if textutil.Normalize(preferred) == grantType {
			return false
		}
	}
	return true
}

func mentionsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if textutil.ContainsPhrase(text, phrase) {
			return true
		}
	}
	return false
}

// timingScore peaks six to ten weeks out: enough time to write, not so long it is forgotten.
func timingScore(now time.Time, c *grants.Candidate) float64 {
	days, ok := c.DaysUntilDeadline(now)
	if !ok {
		return defaultTiming
	}

	switch {
	case days < 14:
		return 20
	case days < 30:
		return 70
	case days >= 45 && days <= 75:
		return 100
	case days <= 90:
		return 90
	case days <= 180:
		return 80
	default:
		return 65
	}
}

func funderFit(org *grants.Organization, c *grants.Candidate) float64 {
	if strings.TrimSpace(c.Funder) == "" {
		return defaultFunder
	}
	if org.HasPriorFunder(c.Funder) {
		return 95
	}

	score := 50.0
	switch grants.MatchGeography(c.Geography, org) {
	case grants.GeoCity, grants.GeoState:
		score += 15
	}
	if ratio, ok := awardRatio(org, c); ok && ratio >= 0.05 && ratio <= 0.30 {
		score += 10
	}
	if len(org.FocusAreas) > 0 && focusOverlap(org, c) > 0 {
		score += 10
	}
	return math.Min(score, 85)
}

// competitionLevel is an inverse proxy: federal programs draw the most applicants.
func competitionLevel(c *grants.Candidate) float64 {
	switch c.SourceKind {
	case grants.SourceFederal:
		return 40
	case grants.SourceCorporate:
		return 60
	case grants.SourceFoundation:
		return 65
	case grants.SourceState:
		return 75
	case grants.SourceLocal:
		return 85
	default:
		return defaultCompetition
	}
}

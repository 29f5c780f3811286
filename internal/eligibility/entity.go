package eligibility

import (
	"strings"

	"github.com/spigell/grant-matcher/internal/textutil"
)

// EntityClass groups applicant entity types that eligibility texts restrict to.
type EntityClass string

const (
	EntityNonprofit       EntityClass = "nonprofit"
	EntityGovernment      EntityClass = "government"
	EntityTribal          EntityClass = "tribal"
	EntityHigherEducation EntityClass = "higher education"
	EntityBusiness        EntityClass = "business"
)

// entityClasses is ordered so reasons list classes deterministically.
var entityClasses = []EntityClass{
	EntityNonprofit,
	EntityGovernment,
	EntityTribal,
	EntityHigherEducation,
	EntityBusiness,
}

// entityPhrases are matched on normalized text, so "501(c)(3)" becomes "501 c 3".
var entityPhrases = map[EntityClass][]string{
	EntityNonprofit: {
		"501 c 3", "501c3", "nonprofit", "nonprofits", "non profit", "not for profit",
		"charitable organization", "charitable organizations", "charity", "charities",
	},
	EntityGovernment: {
		"government entity", "government entities", "governments", "local government",
		"state government", "municipality", "municipalities", "public agency", "public agencies",
		"units of government", "county government", "city government",
	},
	EntityTribal: {
		"tribal", "tribe", "tribes", "tribal government", "native american tribe",
	},
	EntityHigherEducation: {
		"higher education", "institution of higher education", "institutions of higher education",
		"university", "universities", "college", "colleges",
	},
	EntityBusiness: {
		"for profit", "small business", "small businesses", "business", "businesses", "llc",
		"corporation", "corporations", "company", "companies",
	},
}

var negativeMarkers = []string{
	"not eligible", "ineligible", "are excluded", "is excluded", "may not apply",
	"cannot apply", "not allowed", "are not permitted",
}

// Restriction is the entity-type restriction declared by an eligibility text.
type Restriction struct {
	Allowed  []EntityClass
	Excluded []EntityClass
}

// Empty reports that the text declares no entity restriction.
func (r Restriction) Empty() bool {
	return len(r.Allowed) == 0 && len(r.Excluded) == 0
}

// Permits reports whether an applicant of the given class satisfies the restriction.
func (r Restriction) Permits(class EntityClass) bool {
	if containsClass(r.Excluded, class) {
		return false
	}
	return len(r.Allowed) == 0 || containsClass(r.Allowed, class)
}

// ParseRestriction reads entity classes from an eligibility text clause by clause.
// Classes named in a clause like "For-profit entities are not eligible" are excluded.
func ParseRestriction(eligibility string) Restriction {
	var r Restriction
	for _, clause := range SplitClauses(eligibility) {
		classes := mentionedClasses(clause)
		if len(classes) == 0 {
			continue
		}
		if IsNegative(clause) {
			r.Excluded = appendUnique(r.Excluded, classes...)
			continue
		}
		r.Allowed = appendUnique(r.Allowed, classes...)
	}
	return r
}

// ClassifyEntity maps an organization's declared entity type to a class. Unknown types
// are treated as nonprofits.
func ClassifyEntity(entityType string) EntityClass {
	classes := mentionedClasses(entityType)
	if len(classes) == 0 {
		return EntityNonprofit
	}
	// "Tribal government" is tribal, not government.
	for _, class := range classes {
		if class == EntityTribal || class == EntityHigherEducation {
			return class
		}
	}
	return classes[0]
}

func mentionedClasses(text string) []EntityClass {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []EntityClass
	normalized := textutil.Normalize(text)
	// "not for profit" must not count as "for profit".
	withoutNonprofit := strings.ReplaceAll(normalized, "not for profit", "nonprofit")
	for _, class := range entityClasses {
		for _, phrase := range entityPhrases[class] {
			if textutil.ContainsPhrase(withoutNonprofit, phrase) {
				found = append(found, class)
				break
			}
		}
	}
	return found
}

// SplitClauses breaks an eligibility text into sentences and list items.
func SplitClauses(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n'
	})
}

// IsNegative reports whether a clause excludes what it names.
func IsNegative(clause string) bool {
	normalized := textutil.Normalize(clause)
	for _, marker := range negativeMarkers {
		if textutil.ContainsPhrase(normalized, marker) {
			return true
		}
	}
	return false
}

func containsClass(classes []EntityClass, class EntityClass) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

func appendUnique(classes []EntityClass, more ...EntityClass) []EntityClass {
	for _, class := range more {
		if !containsClass(classes, class) {
			classes = append(classes, class)
		}
	}
	return classes
}

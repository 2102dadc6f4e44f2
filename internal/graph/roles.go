package graph

import (
	"strings"
	"unicode"
)

type roleRule struct {
	keywords []string
	role     Role
}

// Order matters: the first matching rule wins.
var roleRules = []roleRule{
	{keywords: []string{"ceo", "chief executive officer"}, role: RoleDecisionMaker},
	{keywords: []string{"cto", "chief technology officer"}, role: RoleDecisionMaker},
	{keywords: []string{"cfo", "chief financial officer"}, role: RoleDecisionMaker},
	{keywords: []string{"vp", "svp", "evp", "vice president"}, role: RoleDecisionMaker},
	{keywords: []string{"director"}, role: RoleInfluencer},
	{keywords: []string{"manager"}, role: RoleInfluencer},
}

type titleWeight struct {
	keywords []string
	points   float64
}

var titleWeights = []titleWeight{
	{keywords: []string{"ceo", "chief executive officer"}, points: 30},
	{keywords: []string{"cto", "cfo", "chief technology officer", "chief financial officer"}, points: 25},
	{keywords: []string{"vp", "svp", "evp", "vice president"}, points: 20},
	{keywords: []string{"director"}, points: 15},
	{keywords: []string{"manager"}, points: 10},
}

const defaultTitlePoints = 5

// InferRole maps a free-text job title to a deal role.
func InferRole(title string) Role {
	found := titleKeywords(title)
	for _, rule := range roleRules {
		if matchesAny(found, rule.keywords) {
			return rule.role
		}
	}
	return RoleEndUser
}

func roleScore(title string) float64 {
	found := titleKeywords(title)
	for _, w := range titleWeights {
		if matchesAny(found, w.keywords) {
			return w.points
		}
	}
	return defaultTitlePoints
}

var allKeywords = func() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range roleRules {
		for _, kw := range rule.keywords {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	for _, w := range titleWeights {
		for _, kw := range w.keywords {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}()

type keywordSpan struct {
	keyword    string
	start, end int
}

// titleKeywords returns the keywords occurring as substrings of the
// normalized title. An occurrence inside a longer keyword's occurrence is
// ignored, so "director" yields director but not cto.
func titleKeywords(title string) map[string]bool {
	normalized := normalizeTitle(title)
	var spans []keywordSpan
	for _, kw := range allKeywords {
		for from := 0; from < len(normalized); {
			i := strings.Index(normalized[from:], kw)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, keywordSpan{keyword: kw, start: start, end: start + len(kw)})
			from = start + 1
		}
	}

	found := make(map[string]bool, len(spans))
	for _, sp := range spans {
		covered := false
		for _, other := range spans {
			if other.end-other.start > sp.end-sp.start && other.start <= sp.start && sp.end <= other.end {
				covered = true
				break
			}
		}
		if !covered {
			found[sp.keyword] = true
		}
	}
	return found
}

// normalizeTitle lowercases a title and collapses every run of
// non-alphanumeric characters to one space: "Sr. Director" becomes
// "sr director".
func normalizeTitle(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

func matchesAny(found map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if found[kw] {
			return true
		}
	}
	return false
}

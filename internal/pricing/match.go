// Package pricing turns an extracted article type and size into a price range
// using the seller's price list.
package pricing

import (
	"regexp"
	"strings"

	"github.com/Veraticus/quotedesk/internal/model"
)

// qualifierPattern strips parenthetical qualifiers such as "（本科）" or "(EN)"
// from entry names. The match is greedy, so everything between the first
// opening and last closing bracket goes.
var qualifierPattern = regexp.MustCompile(`[（(].+[)）]`)

// KeywordRule maps article types containing any of Triggers onto the first
// catalog entry whose name contains any of Targets.
type KeywordRule struct {
	Triggers []string
	Targets  []string
}

// DefaultKeywordRules is checked in order when no entry name overlaps the
// article type. Only the first triggered rule is consulted.
var DefaultKeywordRules = []KeywordRule{
	{Triggers: []string{"ppt", "演示", "presentation", "slides"}, Targets: []string{"ppt"}},
	{Triggers: []string{"论文", "thesis", "paper"}, Targets: []string{"文献综述", "literature review", "报告", "report"}},
	{Triggers: []string{"报告", "report"}, Targets: []string{"报告", "report"}},
	{Triggers: []string{"策划", "plan"}, Targets: []string{"策划", "plan"}},
	{Triggers: []string{"演讲", "speech"}, Targets: []string{"演讲", "speech"}},
	{Triggers: []string{"公文", "official document"}, Targets: []string{"公文", "official document"}},
	{Triggers: []string{"文案", "广告", "copy", "advert"}, Targets: []string{"公众号", "official account", "文案", "copywriting"}},
}

// MatchKind says how an entry was matched.
type MatchKind int

const (
	// MatchNone means no entry fits the article type.
	MatchNone MatchKind = iota
	// MatchName means the entry name and article type overlap directly.
	MatchName
	// MatchKeyword means a keyword rule picked the entry.
	MatchKeyword
)

// String returns a short label for logs.
func (k MatchKind) String() string {
	switch k {
	case MatchName:
		return "name"
	case MatchKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// Match is the outcome of matching an article type against the price list.
type Match struct {
	Entry model.ServiceEntry
	Kind  MatchKind
}

// Found reports whether an entry was matched.
func (m Match) Found() bool {
	return m.Kind != MatchNone
}

// Matcher picks the catalog entry for an article type.
type Matcher struct {
	rules []KeywordRule
}

// NewMatcher creates a matcher with the given keyword rules. A nil slice
// selects DefaultKeywordRules.
func NewMatcher(rules []KeywordRule) *Matcher {
	if rules == nil {
		rules = DefaultKeywordRules
	}
	return &Matcher{rules: rules}
}

// Match finds the entry for articleType. Comparison is case-insensitive.
func (m *Matcher) Match(articleType string, entries []model.ServiceEntry) Match {
	articleType = strings.ToLower(strings.TrimSpace(articleType))
	if articleType == "" || len(entries) == 0 {
		return Match{}
	}

	for _, e := range entries {
		if nameOverlaps(articleType, e.Name) {
			return Match{Entry: e, Kind: MatchName}
		}
	}

	for _, rule := range m.rules {
		if !containsAny(articleType, rule.Triggers) {
			continue
		}
		for _, e := range entries {
			if containsAny(strings.ToLower(e.Name), rule.Targets) {
				return Match{Entry: e, Kind: MatchKeyword}
			}
		}
		return Match{}
	}

	return Match{}
}

func nameOverlaps(articleType, name string) bool {
	name = strings.ToLower(name)
	if strings.Contains(name, articleType) {
		return true
	}
	base := strings.TrimSpace(qualifierPattern.ReplaceAllString(name, ""))
	return base != "" && strings.Contains(articleType, base)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

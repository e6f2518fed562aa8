// Package intent turns free-text market questions into a structured intent:
// which asset is being asked about, what kind of lookup or aggregation is
// wanted, and an optional calendar date.
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// QueryType classifies what kind of answer the user wants.
type QueryType string

const (
	QueryPrice   QueryType = "price"
	QueryVolume  QueryType = "volume"
	QueryMax     QueryType = "max"
	QueryMin     QueryType = "min"
	QueryAverage QueryType = "average"
	QueryRecent  QueryType = "recent"
	QueryList    QueryType = "list"
	QueryGeneral QueryType = "general"
)

// ParsedIntent is the structured interpretation of one question. AssetID 0
// means no asset was recognised; TargetDate is zero when no date was found.
type ParsedIntent struct {
	AssetID    int
	AssetName  string
	QueryType  QueryType
	TargetDate time.Time
}

// HasAsset reports whether an asset was recognised in the text.
func (p ParsedIntent) HasAsset() bool { return p.AssetID != 0 }

// HasDate reports whether a usable date was extracted from the text.
func (p ParsedIntent) HasDate() bool { return !p.TargetDate.IsZero() }

type aliasEntry struct {
	alias   string
	assetID int
	name    string
}

// aliasTable maps lower-cased aliases to asset ids. Matching is substring
// containment in declaration order, so multi-word aliases must come before
// any shorter fragment they contain ("natural gas" before "gas", "s&p 500"
// before "s&p"). Reordering entries changes behaviour.
var aliasTable = []aliasEntry{
	{"natural gas", 1, "Natural Gas"},
	{"crude oil", 2, "Crude Oil"},
	{"s&p 500", 6, "S&P 500"},
	{"s&p500", 6, "S&P 500"},
	{"sp500", 6, "S&P 500"},
	{"s&p", 6, "S&P 500"},
	{"nasdaq 100", 7, "Nasdaq 100"},
	{"nasdaq", 7, "Nasdaq 100"},
	{"bitcoin", 4, "Bitcoin"},
	{"btc", 4, "Bitcoin"},
	{"ethereum", 5, "Ethereum"},
	{"eth", 5, "Ethereum"},
	{"berkshire", 13, "Berkshire Hathaway"},
	{"microsoft", 10, "Microsoft"},
	{"msft", 10, "Microsoft"},
	{"platinum", 19, "Platinum"},
	{"copper", 3, "Copper"},
	{"silver", 18, "Silver"},
	{"apple", 8, "Apple"},
	{"aapl", 8, "Apple"},
	{"tesla", 9, "Tesla"},
	{"tsla", 9, "Tesla"},
	{"google", 11, "Google"},
	{"googl", 11, "Google"},
	{"nvidia", 12, "Nvidia"},
	{"nvda", 12, "Nvidia"},
	{"netflix", 14, "Netflix"},
	{"nflx", 14, "Netflix"},
	{"amazon", 15, "Amazon"},
	{"amzn", 15, "Amazon"},
	{"meta", 16, "Meta"},
	{"gold", 17, "Gold"},
	{"oil", 2, "Crude Oil"},
	{"gas", 1, "Natural Gas"},
}

type keywordCategory struct {
	queryType QueryType
	keywords  []string
}

// keywordCategories is checked in order; the first category with any keyword
// present in the text wins. Aggregations come before the generic price/list
// lookups so "average price of gold" classifies as average, not price.
var keywordCategories = []keywordCategory{
	{QueryMax, []string{"max", "maximum", "highest", "peak", "top"}},
	{QueryMin, []string{"min", "minimum", "lowest", "bottom"}},
	{QueryAverage, []string{"average", "avg", "mean"}},
	{QueryRecent, []string{"recent", "latest", "current", "today", "now"}},
	{QueryVolume, []string{"volume", "vol", "traded", "shares"}},
	{QueryList, []string{"all", "list", "show", "display"}},
	{QueryPrice, []string{"price", "cost", "value", "worth", "trading at"}},
}

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
)

// Resolver holds the static alias and keyword tables. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	aliases    []aliasEntry
	categories []keywordCategory
}

func NewResolver() *Resolver {
	return &Resolver{aliases: aliasTable, categories: keywordCategories}
}

// Resolve parses the question into a ParsedIntent. It never fails: text with
// no recognisable asset or keywords yields a zero AssetID and QueryGeneral.
func (r *Resolver) Resolve(text string) ParsedIntent {
	lower := strings.ToLower(text)

	out := ParsedIntent{QueryType: QueryGeneral}

	for _, e := range r.aliases {
		if strings.Contains(lower, e.alias) {
			out.AssetID = e.assetID
			out.AssetName = e.name
			break
		}
	}

	for _, cat := range r.categories {
		if containsAny(lower, cat.keywords) {
			out.QueryType = cat.queryType
			break
		}
	}

	out.TargetDate = extractDate(lower)
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractDate pulls an optional date out of the text. ISO YYYY-MM-DD is
// tried first, then M/D/Y and M-D-Y with a 2- or 4-digit year (2-digit
// means 2000s). Malformed or impossible dates are dropped silently.
func extractDate(text string) time.Time {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return buildDate(year, m[1], m[2])
	}
	return time.Time{}
}

func buildDate(year, month, day string) time.Time {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow (Feb 30 becomes Mar 2); treat that as
	// a malformed date and drop it.
	if t.Day() != d || t.Month() != time.Month(mo) {
		return time.Time{}
	}
	return t
}

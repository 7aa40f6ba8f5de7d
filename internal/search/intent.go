package search

import (
	"strings"
	"unicode/utf8"

	"github.com/pikestaff/cartridge/internal/game"
)

// Intent classifies what the user is after, which shifts the scoring weights:
// a specific-title lookup should be dominated by relevance, franchise
// browsing leans more on quality and popularity.
type Intent string

// Recognized intents.
const (
	IntentDefault         Intent = "default"
	IntentSpecificTitle   Intent = "specific_title"
	IntentFranchiseBrowse Intent = "franchise_browse"
)

// Queries at or past these sizes read like full titles rather than browse
// terms.
const (
	specificTitleMinWords = 4
	specificTitleMinRunes = 24
)

// detectIntent classifies a query. Quoted or long queries are title lookups,
// as is a query matching a catalog name exactly. A franchise-token hit that
// is not a title lookup means browsing. Catalog results must be from the
// same query so the exact-title check sees what the user will see.
func detectIntent(query string, catalogResults []game.Candidate, franchiseHit bool) Intent {
	trimmed := strings.TrimSpace(query)

	if isQuoted(trimmed) {
		return IntentSpecificTitle
	}
	if len(strings.Fields(trimmed)) >= specificTitleMinWords ||
		utf8.RuneCountInString(trimmed) >= specificTitleMinRunes {
		return IntentSpecificTitle
	}

	normalized := game.NormalizeName(trimmed)
	for i := range catalogResults {
		if game.NormalizeName(catalogResults[i].Name) == normalized {
			return IntentSpecificTitle
		}
	}

	if franchiseHit {
		return IntentFranchiseBrowse
	}
	return IntentDefault
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

package canon

import "strings"

// TokenSet is an unordered set of normalized tokens.
type TokenSet map[string]struct{}

// Has reports whether tok is in the set.
func (s TokenSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Slice returns the tokens in unspecified order.
func (s TokenSet) Slice() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// stopWords lists English and Spanish function words longer than two letters.
var stopWords = map[string]bool{
	// English
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "had": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true, "his": true,
	"how": true, "its": true, "may": true, "new": true, "now": true, "who": true,
	"did": true, "get": true, "him": true, "she": true, "too": true, "use": true,
	"what": true, "when": true, "where": true, "which": true, "why": true,
	"with": true, "this": true, "that": true, "these": true, "those": true,
	"from": true, "into": true, "about": true, "than": true, "then": true,
	"them": true, "they": true, "their": true, "there": true, "have": true,
	"been": true, "were": true, "will": true, "would": true, "should": true,
	"could": true, "does": true, "more": true, "most": true, "some": true,
	"such": true, "only": true, "also": true, "over": true, "your": true,
	"after": true, "before": true, "being": true, "between": true, "each": true,
	"other": true, "very": true, "just": true,
	// Spanish
	"los": true, "las": true, "del": true, "que": true, "por": true, "con": true,
	"una": true, "para": true, "como": true, "mas": true, "pero": true, "sus": true,
	"les": true, "este": true, "esta": true, "estos": true, "estas": true,
	"ese": true, "esa": true, "son": true, "fue": true, "han": true, "hay": true,
	"entre": true, "sobre": true, "tambien": true, "donde": true, "cuando": true,
	"cual": true, "quien": true, "desde": true, "hasta": true, "sin": true,
	"muy": true, "todo": true, "todos": true, "unos": true, "unas": true,
	"ser": true, "sido": true, "tiene": true, "tienen": true, "segun": true,
}

// Tokenize folds text, replaces everything outside [a-z0-9 ] with spaces and
// returns the tokens longer than two runes that are not stop words.
func Tokenize(text string) TokenSet {
	folded := Fold(text)
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, folded)

	set := TokenSet{}
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
)

// Points awarded per matched keyword. The first rule that applies wins.
const (
	pointsCategoryName          = 20
	pointsNameToken             = 15
	pointsHighPriorityWord      = 10
	pointsHighPrioritySubstring = 5
	pointsWord                  = 5
	pointsSubstring             = 1
)

const (
	// Added per matched keyword when more than one keyword matched.
	multiMatchPoints = 2
	// Added for each matched keyword longer than longKeywordRunes.
	longKeywordPoints = 2
	longKeywordRunes  = 5
)

// A word is delimited by the text edges or by any rune that is not a letter,
// combining mark, digit or underscore.
const (
	wordStart = `(?:^|[^\p{L}\p{M}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{M}\p{N}_])`
)

// CategoryScore is the outcome of scoring one category against a product name.
type CategoryScore struct {
	CategoryID int64    `json:"category_id"`
	Name       string   `json:"name"`
	Score      int      `json:"score"`
	Matched    []string `json:"matched"`
}

// Score rates every category of the snapshot against productName, in
// snapshot order.
func Score(snap *Snapshot, productName string) []CategoryScore {
	text := strings.ToLower(productName)

	scores := make([]CategoryScore, 0, len(snap.Categories))
	for _, cat := range snap.Categories {
		scores = append(scores, scoreCategory(cat, snap.Keywords[cat.ID], text))
	}
	return scores
}

// Best returns the first category holding the strictly highest positive
// score, or nil when nothing scored.
func Best(scores []CategoryScore) *CategoryScore {
	var best *CategoryScore
	for i := range scores {
		if scores[i].Score <= 0 {
			continue
		}
		if best == nil || scores[i].Score > best.Score {
			best = &scores[i]
		}
	}
	return best
}

// scoreCategory expects text to be lowercased already.
func scoreCategory(cat model.Category, keywords []model.CategoryKeyword, text string) CategoryScore {
	result := CategoryScore{CategoryID: cat.ID, Name: cat.Name}

	name := strings.ToLower(strings.TrimSpace(cat.Name))
	tokens := nameTokens(name)

	var highPriority []string
	for _, k := range keywords {
		if k.IsHighPriority {
			if kw := strings.ToLower(strings.TrimSpace(k.Keyword)); kw != "" {
				highPriority = append(highPriority, kw)
			}
		}
	}

	for _, kw := range candidates(name, keywords) {
		if !strings.Contains(text, kw) {
			continue
		}
		word := matchesWord(text, kw)
		hp := isHighPriority(kw, highPriority)

		switch {
		case kw == name:
			result.Score += pointsCategoryName
		case tokens[kw]:
			result.Score += pointsNameToken
		case hp && word:
			result.Score += pointsHighPriorityWord
		case hp:
			result.Score += pointsHighPrioritySubstring
		case word:
			result.Score += pointsWord
		default:
			result.Score += pointsSubstring
		}
		result.Matched = append(result.Matched, kw)
	}

	if len(result.Matched) > 1 {
		result.Score += len(result.Matched) * multiMatchPoints
	}
	for _, kw := range result.Matched {
		if utf8.RuneCountInString(kw) > longKeywordRunes {
			result.Score += longKeywordPoints
		}
	}

	return result
}

// candidates lists the lowercased keyword texts to test for one category:
// its name, the tokens of its name, then its registered keywords. Repeats are
// dropped so a keyword is counted once however it entered the set.
func candidates(name string, keywords []model.CategoryKeyword) []string {
	seen := make(map[string]struct{}, len(keywords)+2)
	out := make([]string, 0, len(keywords)+2)
	add := func(kw string) {
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	add(name)
	for _, tok := range orderedTokens(name) {
		add(tok)
	}
	for _, k := range keywords {
		add(strings.ToLower(strings.TrimSpace(k.Keyword)))
	}
	return out
}

func splitName(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}

// orderedTokens keeps the tokens of a category name in reading order.
func orderedTokens(name string) []string {
	var out []string
	for _, tok := range splitName(name) {
		if utf8.RuneCountInString(tok) > 1 {
			out = append(out, tok)
		}
	}
	return out
}

func nameTokens(name string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range orderedTokens(name) {
		set[tok] = true
	}
	return set
}

// matchesWord reports whether kw occurs in text as a whole word. kw is
// matched literally.
func matchesWord(text, kw string) bool {
	re, err := regexp.Compile(wordStart + regexp.QuoteMeta(kw) + wordEnd)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// isHighPriority treats kw as high priority when it equals, contains or is
// contained by one of the category's high-priority keywords.
func isHighPriority(kw string, highPriority []string) bool {
	for _, hp := range highPriority {
		if kw == hp || strings.Contains(kw, hp) || strings.Contains(hp, kw) {
			return true
		}
	}
	return false
}

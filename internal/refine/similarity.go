package refine

import (
	"strings"
	"unicode"
)

// Scoring constants for TextSimilarity.
const (
	substringScore       = 0.98
	partialCredit        = 0.5  // Weight of a fuzzy (non-exact) token match
	partialMinLength     = 4    // Tokens must be longer than this for fuzzy matching
	partialMinOverlap    = 0.7  // LCS ratio required for a fuzzy match
	distinguishingBonus  = 0.1  // Per distinguishing word present in both
	missingInTextPenalty = 0.15 // Per distinguishing word only the candidate name has
	missingInNamePenalty = 0.25 // Per distinguishing word only the label text has
)

// stopwords are connectives and generic category words that appear on
// nearly every label and carry no identity.
var stopwords = map[string]bool{
	"the": true, "and": true, "of": true, "a": true, "an": true, "with": true,
	"de": true, "la": true, "le": true, "el": true, "by": true, "for": true,
	"vodka": true, "gin": true, "rum": true, "whisky": true, "whiskey": true,
	"tequila": true, "mezcal": true, "brandy": true, "cognac": true, "liqueur": true,
	"bourbon": true, "scotch": true, "vermouth": true, "wine": true, "beer": true,
	"lager": true, "ale": true, "cider": true, "spirit": true, "spirits": true,
}

// distinguishingWords are qualifiers that separate variants of one product
// line: colors, grades and styles.
var distinguishingWords = map[string]bool{
	"silver": true, "gold": true, "black": true, "white": true, "red": true,
	"blue": true, "green": true, "pink": true, "platinum": true, "dark": true,
	"light": true, "spiced": true, "reserve": true, "reserva": true, "premium": true,
	"extra": true, "special": true, "limited": true, "aged": true, "blanco": true,
	"reposado": true, "anejo": true, "dry": true, "sweet": true, "xo": true,
	"vsop": true, "original": true, "citrus": true, "vanilla": true, "cherry": true,
}

// TextSimilarity scores how well OCR label text supports a candidate's
// display name, on [0,1].
//
// A name contained verbatim in the text scores 0.98. Otherwise the score
// is the fraction of the name's significant tokens found in the text, with
// half credit for long tokens that nearly match, adjusted up for shared
// distinguishing words and down for distinguishing words only one side has.
// A distinguishing word printed on the label but absent from the name
// costs more than the reverse: it means the shelf holds a different variant.
func TextSimilarity(text, name string) float64 {
	text = strings.ToLower(strings.TrimSpace(text))
	name = strings.ToLower(strings.TrimSpace(name))
	if text == "" || name == "" {
		return 0
	}
	if strings.Contains(text, name) {
		return substringScore
	}

	nameTokens := significantTokens(name)
	textTokens := significantTokens(text)
	if len(nameTokens) == 0 {
		// Names made only of stopwords are compared as written.
		nameTokens = tokenize(name)
		textTokens = tokenize(text)
	}
	if len(nameTokens) == 0 {
		return 0
	}
	textSet := toSet(textTokens)
	nameSet := toSet(nameTokens)

	matched := 0.0
	bonus := 0.0
	for _, nt := range nameTokens {
		if textSet[nt] {
			matched++
			if distinguishingWords[nt] {
				bonus += distinguishingBonus
			}
			continue
		}
		if len([]rune(nt)) > partialMinLength {
			for _, tt := range textTokens {
				if len([]rune(tt)) > partialMinLength && overlapRatio(nt, tt) > partialMinOverlap {
					matched += partialCredit
					break
				}
			}
		}
	}

	score := matched/float64(len(nameTokens)) + bonus

	for w := range nameSet {
		if distinguishingWords[w] && !textSet[w] {
			score -= missingInTextPenalty
		}
	}
	for w := range textSet {
		if distinguishingWords[w] && !nameSet[w] {
			score -= missingInNamePenalty
		}
	}

	return clamp01(score)
}

// tokenize splits s into lower-case letter/digit runs.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// significantTokens is tokenize without stopwords.
func significantTokens(s string) []string {
	var out []string
	for _, t := range tokenize(s) {
		if !stopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// overlapRatio is the longest common subsequence length relative to the
// longer token.
func overlapRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 0
	}
	return float64(longestCommonSubsequence(ra, rb)) / float64(maxLen)
}

// longestCommonSubsequence calculates LCS length using two rolling rows.
func longestCommonSubsequence(a, b []rune) int {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

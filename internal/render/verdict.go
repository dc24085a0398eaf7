package render

import (
	"regexp"
	"strings"
)

// narrativeErrorPrefix starts the text the advisor returns on failure.
const narrativeErrorPrefix = "Error generating analysis:"

const verdictWords = `(buy|buying|hold|holding|sell|selling)`

var (
	verdictWord = regexp.MustCompile(`(?i)\b` + verdictWords + `\b`)

	// leadingVerdict matches a verdict opening the text, past markdown markup.
	leadingVerdict = regexp.MustCompile(`(?i)^[\s*_#>"'` + "`" + `-]*` + verdictWords + `\b`)

	// labelledVerdict matches "Verdict: Hold", "**Recommendation:** Sell" and the like.
	labelledVerdict = regexp.MustCompile(`(?i)\b(?:verdict|recommendation)\b[\s*_:-]*` + verdictWords + `\b`)

	clauseBreak = regexp.MustCompile(`[.!?;:\n]+`)
)

// Verdict extracts buy, hold or sell from a narrative. A verdict word
// opening the text wins, then one labelled "Verdict:" or "Recommendation:",
// then the first verdict word of a clause that does not list all three
// options. It returns "" when none applies or the narrative is an error text.
func Verdict(text string) string {
	if strings.HasPrefix(text, narrativeErrorPrefix) {
		return ""
	}
	if m := leadingVerdict.FindStringSubmatch(text); m != nil {
		return normalizeVerdict(m[1])
	}
	if m := labelledVerdict.FindStringSubmatch(text); m != nil {
		return normalizeVerdict(m[1])
	}
	for _, clause := range clauseBreak.Split(text, -1) {
		words := verdictWord.FindAllString(clause, -1)
		if len(words) == 0 {
			continue
		}
		seen := make(map[string]bool, 3)
		for _, w := range words {
			seen[normalizeVerdict(w)] = true
		}
		if len(seen) == 3 {
			continue // restates the question
		}
		return normalizeVerdict(words[0])
	}
	return ""
}

func normalizeVerdict(word string) string {
	switch strings.ToLower(word) {
	case "buy", "buying":
		return "buy"
	case "hold", "holding":
		return "hold"
	case "sell", "selling":
		return "sell"
	default:
		return ""
	}
}

// VerdictClass maps a narrative to the CSS class used by the dashboard.
func VerdictClass(text string) string {
	if strings.HasPrefix(text, narrativeErrorPrefix) {
		return "error"
	}
	if v := Verdict(text); v != "" {
		return v
	}
	return "neutral"
}

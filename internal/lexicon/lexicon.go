// Package lexicon normalizes free-text pet-product vocabulary into canonical
// tags and detects negated concepts ("grain-free", "without chicken"). It is
// pure string processing with no I/O.
package lexicon

import (
	"strings"
	"unicode"
)

// Token is one normalized concept from an utterance.
type Token struct {
	Raw       string `json:"raw"`
	Canonical string `json:"canonical"`
	Negated   bool   `json:"negated"`
}

// synonyms maps surface forms to canonical tags. Keys are space-normalized
// and lowercase; hyphen and space are interchangeable at lookup time.
var synonyms = map[string]string{
	"grain free":         "grain-free",
	"grainless":          "grain-free",
	"no grains":          "grain-free",
	"gluten free":        "gluten-free",
	"hypoallergenic":     "limited-ingredient",
	"limited ingredient": "limited-ingredient",
	"lid":                "limited-ingredient",
	"sensitive stomach":  "sensitive-digestion",
	"sensitive tummy":    "sensitive-digestion",
	"high protein":       "high-protein",
	"protein rich":       "high-protein",
	"low fat":            "low-fat",
	"weight control":     "weight-management",
	"weight management":  "weight-management",
	"diet":               "weight-management",
	"salmon":             "fish",
	"tuna":               "fish",
	"whitefish":          "fish",
	"poultry":            "chicken",
	"beef":               "beef",
	"lamb":               "lamb",
	"chicken":            "chicken",
	"chicken meal":       "chicken",
	"corn":               "corn",
	"maize":              "corn",
	"soy":                "soy",
	"soya":               "soy",
	"wheat":              "wheat",
	"dairy":              "dairy",
	"milk":               "dairy",
	"raw":                "raw",
	"freeze dried":       "freeze-dried",
	"kibble":             "dry",
	"dry food":           "dry",
	"wet food":           "wet",
	"canned":             "wet",
	"treats":             "treats",
	"snacks":             "treats",
	// brand aliases
	"blue":          "blue-buffalo",
	"blue buffalo":  "blue-buffalo",
	"hills":         "hills-science",
	"hills science": "hills-science",
	"royal canin":   "royal-canin",
	"purina":        "purina",
	"orijen":        "orijen",
	"acana":         "acana",
	"wellness":      "wellness",
	"taste of the wild": "taste-of-the-wild",
}

// negationPrefixes introduce a negated concept phrase that follows.
var negationPrefixes = []string{"without", "excluding", "no", "not"}

// stopwords are dropped before phrase matching.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "for": true, "my": true, "me": true,
	"i": true, "want": true, "need": true, "some": true, "please": true,
	"show": true, "find": true, "looking": true, "food": true, "with": true,
	"and": true, "or": true, "of": true, "to": true, "something": true,
	"that": true, "is": true, "has": true, "it": true,
}

// Canonical maps a single term or short phrase to its canonical tag. Unknown
// terms pass through lowercased with spaces collapsed to hyphens, so every
// output is a stable tag even outside the known vocabulary.
func Canonical(term string) string {
	key := normalizeKey(term)
	if key == "" {
		return ""
	}
	if c, ok := synonyms[key]; ok {
		return c
	}
	return strings.ReplaceAll(key, " ", "-")
}

// Known reports whether the term maps to an entry in the vocabulary.
func Known(term string) bool {
	_, ok := synonyms[normalizeKey(term)]
	return ok
}

// Normalize tokenizes an utterance into canonical concept tokens, marking
// negated concepts. Negation comes from "X-free" suffixes and from the
// prefixes "without", "no", "not", "excluding", whose scope is the concept
// phrase immediately following.
func Normalize(text string) []Token {
	words := splitWords(text)
	tokens := make([]Token, 0, len(words))
	negateNext := false

	for i := 0; i < len(words); i++ {
		w := words[i]

		// "grain-free" style: the hyphenated suffix negates what precedes it.
		if base, ok := strings.CutSuffix(w, "-free"); ok && base != "" {
			tokens = append(tokens, Token{Raw: w, Canonical: Canonical(base), Negated: true})
			negateNext = false
			continue
		}
		// "grain free" split across two words.
		if i+1 < len(words) && words[i+1] == "free" {
			tokens = append(tokens, Token{Raw: w + " free", Canonical: Canonical(w), Negated: true})
			i++
			negateNext = false
			continue
		}

		// Longest phrase match first, so "taste of the wild" beats "taste"
		// and "no grains" beats the bare negation prefix.
		if n, c := matchPhrase(words, i); n > 0 {
			tokens = append(tokens, Token{Raw: strings.Join(words[i:i+n], " "), Canonical: c, Negated: negateNext})
			negateNext = false
			i += n - 1
			continue
		}

		if isNegationPrefix(w) {
			negateNext = true
			continue
		}
		if stopwords[w] {
			// An intervening stopword ends the negation scope.
			negateNext = false
			continue
		}

		tokens = append(tokens, Token{Raw: w, Canonical: Canonical(w), Negated: negateNext})
		negateNext = false
	}
	return tokens
}

// maxPhraseWords is the longest synonym key, in words.
var maxPhraseWords = func() int {
	longest := 1
	for k := range synonyms {
		if n := len(strings.Fields(k)); n > longest {
			longest = n
		}
	}
	return longest
}()

// matchPhrase finds the longest multi-word vocabulary phrase starting at
// position i, returning its word count and canonical tag.
func matchPhrase(words []string, i int) (int, string) {
	limit := maxPhraseWords
	if rest := len(words) - i; rest < limit {
		limit = rest
	}
	for n := limit; n >= 2; n-- {
		if c, ok := synonyms[strings.Join(words[i:i+n], " ")]; ok {
			return n, c
		}
	}
	return 0, ""
}

func isNegationPrefix(w string) bool {
	for _, p := range negationPrefixes {
		if w == p {
			return true
		}
	}
	return false
}

// normalizeKey lowercases, strips punctuation, and treats hyphens as spaces
// so "grain-free" and "grain free" hit the same vocabulary entry.
func normalizeKey(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(splitWords(s), " ")
}

// splitWords lowercases and splits on anything that is not a letter, digit,
// or hyphen. Hyphenated words stay intact so "-free" suffix detection works.
func splitWords(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

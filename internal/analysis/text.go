package analysis

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyVocabulary is returned when both documents contain only stop words.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words")

var (
	tokenPattern = regexp.MustCompile(`\b\w\w+\b`)
	wordPattern  = regexp.MustCompile(`\w[\w']*`)
)

// stopWords is the English list shared by word frequencies and TF-IDF.
var stopWords = toSet(`a about above across after afterwards again against all almost alone along
already also although always am among amongst an and another any anyhow anyone anything anyway
anywhere are around as at back be became because become becomes becoming been before beforehand
behind being below beside besides between beyond both but by can cannot could did do does doing
done down due during each eg either else elsewhere enough etc even ever every everyone everything
everywhere except few for former formerly from further get had has have having he hence her here
hereafter hereby herein hereupon hers herself him himself his how however http https i ie if in
indeed into is it its itself just last latter latterly least less ltd made many may me meanwhile
might more moreover most mostly much must my myself namely neither never nevertheless next no
nobody none noone nor not nothing now nowhere of off often on once one only onto or other others
otherwise our ours ourselves out over own per perhaps please put rather re said same say says
see seem seemed seeming seems several she should since so some somehow someone something sometime
sometimes somewhere still such than that the their theirs them themselves then thence there
thereafter thereby therefore therein thereupon these they this those though through throughout
thru thus to together too toward towards under until up upon us very via was we well were what
whatever when whence whenever where whereafter whereas whereby wherein whereupon wherever whether
which while whither who whoever whole whom whose why will with within without would www yet you
your yours yourself yourselves`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether w (lower case) is ignored by the analyses.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// WordCount is one entry of a word-cloud frequency table. Weight is the
// count relative to the most frequent word.
type WordCount struct {
	Word   string  `json:"word"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// WordFrequencies counts the non-stop words of text, most frequent first,
// keeping at most limit entries (zero means all). Possessive "'s" is
// folded into the base word and pure numbers are ignored.
func WordFrequencies(text string, limit int) []WordCount {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		w = strings.TrimSuffix(w, "'s")
		w = strings.Trim(w, "'")
		if w == "" || IsStopWord(w) || isNumber(w) {
			continue
		}
		counts[w]++
	}

	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if len(out) > 0 {
		top := float64(out[0].Count)
		for i := range out {
			out[i].Weight = float64(out[i].Count) / top
		}
	}
	return out
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Tokenize lower-cases text and returns tokens of two or more word
// characters, minus stop words.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if !IsStopWord(t) {
			out = append(out, t)
		}
	}
	return out
}

// Vectorize fits TF-IDF over docs and returns one L2-normalized sparse
// vector per document. IDF is smoothed: ln((1+n)/(1+df)) + 1.
func Vectorize(docs []string) ([]map[string]float64, error) {
	tfs := make([]map[string]float64, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tf := make(map[string]float64)
		for _, t := range Tokenize(doc) {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		tfs[i] = tf
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := float64(len(docs))
	for _, tf := range tfs {
		var norm float64
		for t, count := range tf {
			w := count * (math.Log((1+n)/(1+float64(df[t]))) + 1)
			tf[t] = w
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for t := range tf {
			tf[t] /= norm
		}
	}
	return tfs, nil
}

// Cosine returns the cosine similarity of two normalized sparse vectors.
func Cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for t, w := range a {
		dot += w * b[t]
	}
	return dot
}

// Similarity returns the TF-IDF cosine similarity of two texts.
func Similarity(a, b string) (float64, error) {
	vecs, err := Vectorize([]string{a, b})
	if err != nil {
		return 0, err
	}
	return Cosine(vecs[0], vecs[1]), nil
}

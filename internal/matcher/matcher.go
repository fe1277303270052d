package matcher

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultSequenceThreshold = 0.85
	DefaultPercentThreshold  = 85
)

// Metric scores the similarity of two already-normalized names.
type Metric interface {
	Score(a, b string) float64
	Name() string
}

// SequenceRatio is the matching-blocks ratio 2*M/T on a 0..1 scale.
type SequenceRatio struct{}

func (SequenceRatio) Name() string { return "sequence" }

func (SequenceRatio) Score(a, b string) float64 {
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	return m.Ratio()
}

// PercentRatio is the indel similarity on a 0..100 integer scale.
type PercentRatio struct{}

func (PercentRatio) Name() string { return "percent" }

func (PercentRatio) Score(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return math.Round(100 * float64(2*lcsLength(ra, rb)) / float64(total))
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

var lower = cases.Lower(language.Und)

// Normalize lowercases and trims a name, composing unicode so that
// "Müller" typed two ways compares equal.
func Normalize(s string) string {
	return lower.String(norm.NFC.String(strings.TrimSpace(s)))
}

type Matcher struct {
	metric    Metric
	threshold float64
}

func New(metric Metric, threshold float64) *Matcher {
	if metric == nil {
		metric = SequenceRatio{}
	}
	return &Matcher{metric: metric, threshold: threshold}
}

// NewSequence matches with SequenceRatio at 0.85.
func NewSequence() *Matcher { return New(SequenceRatio{}, DefaultSequenceThreshold) }

// NewPercent matches with PercentRatio at 85.
func NewPercent() *Matcher { return New(PercentRatio{}, DefaultPercentThreshold) }

func (m *Matcher) Threshold() float64 { return m.threshold }
func (m *Matcher) MetricName() string { return m.metric.Name() }

// Match returns the known name with the highest score. The first name
// reaching the maximum wins. ok is false when the best score is below the
// threshold; the best score is still returned for diagnostics.
func (m *Matcher) Match(candidate string, known []string) (name string, score float64, ok bool) {
	c := Normalize(candidate)
	best, bestScore := -1, 0.0
	for i, k := range known {
		s := m.metric.Score(c, Normalize(k))
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < m.threshold {
		return "", bestScore, false
	}
	return known[best], bestScore, true
}

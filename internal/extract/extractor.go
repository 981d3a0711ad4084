// Package extract turns raw source snippets into entity observations using
// per-category name patterns and a windowed price/year scan.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/market-scout/internal/config"
	"github.com/sells-group/market-scout/internal/model"
)

var (
	priceRe = regexp.MustCompile(`(?:[$€£]|\b(?:USD|EUR|GBP)\s?)\s?(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)
	yearRe  = regexp.MustCompile(`\b(20\d{2}|19\d{2})\b`)
)

// marketingQualifiers are trailing tokens that search-result titles bolt onto
// a product name. They are stripped during normalization so "galaxy s24
// review" and "galaxy s24" land in the same bucket.
var marketingQualifiers = map[string]bool{
	"review":     true,
	"reviews":    true,
	"unboxing":   true,
	"hands-on":   true,
	"teardown":   true,
	"comparison": true,
	"vs":         true,
	"test":       true,
	"specs":      true,
	"deal":       true,
	"deals":      true,
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases a name, folds accents, collapses whitespace and strips
// trailing marketing qualifiers. The result is the merge key used downstream.
func Normalize(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}
	fields := strings.Fields(strings.ToLower(folded))
	for len(fields) > 0 && marketingQualifiers[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// Extractor applies one category's rules to snippets. Compile it once per
// request; Extract is safe for concurrent use.
type Extractor struct {
	cfg      config.ExtractConfig
	patterns categoryPatterns
	self     string
	now      func() time.Time
}

// New builds an extractor for the request's category. The request subject is
// remembered so self-matches can be discarded.
func New(cfg config.ExtractConfig, req model.DiscoveryRequest) *Extractor {
	return &Extractor{
		cfg:      cfg,
		patterns: patternsFor(req.Category),
		self:     Normalize(req.Subject),
		now:      time.Now,
	}
}

type span struct {
	start, end int
	text       string
}

// Extract scans one snippet for entity mentions. Zero observations is a
// normal outcome, not an error.
func (e *Extractor) Extract(s model.RawSnippet) []model.EntityObservation {
	spans := e.matchSpans(s.Text)
	if len(spans) == 0 {
		return nil
	}

	observedAt := s.PublishedAt
	if observedAt.IsZero() {
		observedAt = e.now()
	}
	engagement := engagementFor(s)

	var obs []model.EntityObservation
	for _, sp := range spans {
		normalized := Normalize(sp.text)
		if len(normalized) < e.cfg.MinNameLength || normalized == e.self {
			continue
		}
		window := e.window(s.Text, sp)
		obs = append(obs, model.EntityObservation{
			Name:           strings.Join(strings.Fields(sp.text), " "),
			NormalizedName: normalized,
			Price:          e.price(window),
			Year:           e.year(window),
			Service:        s.Service,
			Engagement:     engagement,
			SnippetURL:     s.URL,
			ObservedAt:     observedAt,
		})
	}
	return obs
}

// matchSpans runs every name pattern and keeps non-overlapping spans,
// preferring the longer match where two patterns claim the same text.
func (e *Extractor) matchSpans(text string) []span {
	var all []span
	for _, re := range e.patterns.names {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			all = append(all, span{start: loc[0], end: loc[1], text: text[loc[0]:loc[1]]})
		}
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end > all[j].end
	})
	kept := all[:1]
	for _, sp := range all[1:] {
		if sp.start < kept[len(kept)-1].end {
			continue
		}
		kept = append(kept, sp)
	}
	return kept
}

// window returns the text surrounding a name span, clamped to the configured
// radius, for the price and year scans.
func (e *Extractor) window(text string, sp span) string {
	lo := sp.start - e.cfg.TextWindow
	if lo < 0 {
		lo = 0
	}
	hi := sp.end + e.cfg.TextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func (e *Extractor) price(window string) float64 {
	m := priceRe.FindStringSubmatch(window)
	if m == nil {
		return 0
	}
	p, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	if p < e.patterns.priceMin || p > e.patterns.priceMax {
		return 0
	}
	return p
}

func (e *Extractor) year(window string) int {
	current := e.now().Year()
	for _, m := range yearRe.FindAllString(window, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if y >= current-e.cfg.YearWindow && y <= current+1 {
			return y
		}
	}
	return 0
}

// engagementFor collapses a snippet's metrics into one number with a
// service-specific formula. Shares weigh double on microblogs because a
// retweet is a stronger endorsement than a like. Metric-less snippets get a
// neutral 1 so corroboration still accumulates.
func engagementFor(s model.RawSnippet) float64 {
	if !s.HasMetrics {
		return 1
	}
	switch s.Service {
	case "microblog":
		return float64(s.Likes + 2*s.Shares + s.Replies)
	case "forum":
		return float64(s.Votes)
	case "video":
		return float64(s.Likes) + float64(s.Views)/100
	default:
		return float64(s.Likes + s.Shares + s.Replies + s.Votes)
	}
}

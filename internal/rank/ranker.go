// Package rank merges entity observations into canonical entities and orders
// them by confidence.
package rank

import (
	"sort"
	"strings"
	"time"

	"github.com/agext/levenshtein"

	"github.com/sells-group/market-scout/internal/config"
	"github.com/sells-group/market-scout/internal/model"
)

// defaultWeight applies to services without a configured weight.
const defaultWeight = 0.5

// formFactors are tokens that pin a name to a product form. Two names that
// both carry a form token but disagree on it never merge, no matter how
// close the edit distance ("galaxy s9" and "galaxy tab s9" are different
// devices).
var formFactors = []string{"watch", "tab", "buds", "book", "pad", "band", "fold", "flip"}

// Ranker turns raw observations into the final ranked entity list.
type Ranker struct {
	cfg     config.RankConfig
	weights map[string]float64
}

// New builds a ranker. weights maps service name to its trust weight.
func New(cfg config.RankConfig, weights map[string]float64) *Ranker {
	return &Ranker{cfg: cfg, weights: weights}
}

// Rank merges, scores, tiers and sorts. The output order is a total order:
// score descending, then earliest first-observed, then name.
func (r *Ranker) Rank(observations []model.EntityObservation) []model.CanonicalEntity {
	buckets := r.merge(observations)

	entities := make([]model.CanonicalEntity, 0, len(buckets))
	for _, b := range buckets {
		entities = append(entities, r.resolve(b))
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Score != entities[j].Score {
			return entities[i].Score > entities[j].Score
		}
		if !entities[i].FirstObserved.Equal(entities[j].FirstObserved) {
			return entities[i].FirstObserved.Before(entities[j].FirstObserved)
		}
		return entities[i].Name < entities[j].Name
	})
	return entities
}

// UniqueCount reports how many canonical buckets the observations collapse
// into, without resolving attributes. The orchestrator uses it for its
// early-stop check.
func (r *Ranker) UniqueCount(observations []model.EntityObservation) int {
	return len(r.merge(observations))
}

// merge groups observations transitively: exact normalized-name equality or
// edit-distance similarity above the threshold, unless the names disagree on
// product form.
func (r *Ranker) merge(observations []model.EntityObservation) [][]model.EntityObservation {
	n := len(observations)
	if n == 0 {
		return nil
	}
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.same(observations[i].NormalizedName, observations[j].NormalizedName) {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]model.EntityObservation)
	var roots []int
	for i, o := range observations {
		root := uf.find(i)
		if _, seen := groups[root]; !seen {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], o)
	}

	// Root order follows first appearance in the input, keeping the merge
	// pass deterministic for identical inputs.
	buckets := make([][]model.EntityObservation, 0, len(roots))
	for _, root := range roots {
		buckets = append(buckets, groups[root])
	}
	return buckets
}

func (r *Ranker) same(a, b string) bool {
	if a == b {
		return true
	}
	if fa, fb := formFactor(a), formFactor(b); fa != "" && fb != "" && fa != fb {
		return false
	}
	// Model numbers are load-bearing: "galaxy s23" and "galaxy s24" are one
	// edit apart but name different generations.
	if digits(a) != digits(b) {
		return false
	}
	return levenshtein.Similarity(a, b, levenshtein.NewParams()) >= r.cfg.SimilarityThreshold
}

func digits(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formFactor(name string) string {
	for _, f := range formFactors {
		for _, tok := range strings.Fields(name) {
			if tok == f {
				return f
			}
		}
	}
	return ""
}

// resolve collapses one bucket into a canonical entity.
func (r *Ranker) resolve(bucket []model.EntityObservation) model.CanonicalEntity {
	normalized := longestName(bucket)

	e := model.CanonicalEntity{
		Name:           commonCasing(bucket, normalized),
		NormalizedName: normalized,
		Sources:        services(bucket),
		Price:          majorityPrice(bucket),
		Year:           newestYear(bucket),
		FirstObserved:  firstObserved(bucket),
		Observations:   bucket,
	}
	e.Score = r.score(bucket)
	e.Tier = r.tier(e.Score)
	return e
}

// score rewards corroboration over virality: each observation contributes its
// service weight scaled by e/(e+pivot), which approaches 1 for large
// engagement, so a single viral mention can never outrank confirmation by
// several independent sources.
func (r *Ranker) score(bucket []model.EntityObservation) float64 {
	var total float64
	for _, o := range bucket {
		w, ok := r.weights[o.Service]
		if !ok {
			w = defaultWeight
		}
		e := o.Engagement
		if e < 0 {
			e = 0
		}
		total += w * (e / (e + r.cfg.EngagementPivot))
	}
	return total
}

func (r *Ranker) tier(score float64) model.Tier {
	switch {
	case score >= r.cfg.DirectThreshold:
		return model.TierDirect
	case score >= r.cfg.IndirectThreshold:
		return model.TierIndirect
	default:
		return model.TierEmerging
	}
}

// longestName picks the most descriptive normalized name in the bucket.
func longestName(bucket []model.EntityObservation) string {
	best := bucket[0].NormalizedName
	for _, o := range bucket[1:] {
		if len(o.NormalizedName) > len(best) {
			best = o.NormalizedName
		}
	}
	return best
}

// commonCasing re-capitalizes the chosen normalized name using the most
// frequently seen raw spelling of it.
func commonCasing(bucket []model.EntityObservation, normalized string) string {
	counts := make(map[string]int)
	var best string
	for _, o := range bucket {
		if o.NormalizedName != normalized {
			continue
		}
		counts[o.Name]++
		if best == "" || counts[o.Name] > counts[best] ||
			(counts[o.Name] == counts[best] && o.Name < best) {
			best = o.Name
		}
	}
	if best == "" {
		return normalized
	}
	return best
}

// majorityPrice picks the most frequently observed non-zero price, breaking
// ties in favor of the most recent observation carrying that price.
func majorityPrice(bucket []model.EntityObservation) float64 {
	counts := make(map[float64]int)
	latest := make(map[float64]time.Time)
	for _, o := range bucket {
		if o.Price == 0 {
			continue
		}
		counts[o.Price]++
		if o.ObservedAt.After(latest[o.Price]) {
			latest[o.Price] = o.ObservedAt
		}
	}

	var best float64
	for price := range counts {
		if best == 0 {
			best = price
			continue
		}
		switch {
		case counts[price] > counts[best]:
			best = price
		case counts[price] == counts[best] && latest[price].After(latest[best]):
			best = price
		}
	}
	return best
}

// newestYear keeps the most recent launch year seen. Sources skew toward
// recent coverage, so the newest mention is the best estimate.
func newestYear(bucket []model.EntityObservation) int {
	year := 0
	for _, o := range bucket {
		if o.Year > year {
			year = o.Year
		}
	}
	return year
}

func services(bucket []model.EntityObservation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range bucket {
		if !seen[o.Service] {
			seen[o.Service] = true
			out = append(out, o.Service)
		}
	}
	sort.Strings(out)
	return out
}

func firstObserved(bucket []model.EntityObservation) time.Time {
	first := bucket[0].ObservedAt
	for _, o := range bucket[1:] {
		if !o.ObservedAt.IsZero() && (first.IsZero() || o.ObservedAt.Before(first)) {
			first = o.ObservedAt
		}
	}
	return first
}

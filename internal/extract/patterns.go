package extract

import (
	"regexp"
	"strings"
)

// modelSuffix matches the trailing qualifiers manufacturers append to a base
// model token ("Pro Max", "Ultra", "FE") so the full variant name is captured
// as one span.
const modelSuffix = `(?:\s+(?:pro|plus|ultra|max|mini|lite|fe|se|air|fold|flip|edge|neo|active|classic))*`

// categoryPatterns holds the compiled name patterns and the sane price range
// for one product category. A price outside the range is treated as noise
// (shipping costs, accessory prices, view counts mistaken for currency).
type categoryPatterns struct {
	names    []*regexp.Regexp
	priceMin float64
	priceMax float64
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)\b`+e+modelSuffix+`\b`))
	}
	return out
}

// categoryTable maps a normalized category to its extraction rules. Each
// pattern is "line token + alphanumeric model token"; the brand prefix is
// optional because social posts rarely spell it out.
var categoryTable = map[string]categoryPatterns{
	"smartphone": {
		names: compile(
			`(?:samsung\s+)?galaxy\s+[a-z]\d{1,3}[a-z]?`,
			`(?:apple\s+)?iphone\s+\d{1,2}[a-z]?`,
			`(?:google\s+)?pixel\s+\d{1,2}a?`,
			`oneplus\s+\d{1,2}[rt]?`,
			`(?:xiaomi\s+)?redmi\s+(?:note\s+)?\d{1,2}[a-z]?`,
			`xiaomi\s+\d{1,2}[a-z]?`,
			`(?:sony\s+)?xperia\s+\d{1,2}\s?[iv]{0,3}`,
			`(?:motorola\s+)?moto\s+[a-z]\d{1,3}`,
			`(?:huawei\s+)?mate\s+\d{1,2}[a-z]?`,
			`(?:oppo\s+)?find\s+[a-z]\d{1,2}`,
			`nothing\s+phone\s+\(?\d\)?`,
		),
		priceMin: 80,
		priceMax: 2500,
	},
	"laptop": {
		names: compile(
			`(?:apple\s+)?macbook\s+(?:air|pro)(?:\s+\d{1,2})?`,
			`(?:lenovo\s+)?thinkpad\s+[a-z]\d{1,2}[a-z]?`,
			`(?:dell\s+)?xps\s+\d{1,2}`,
			`(?:hp\s+)?spectre\s+x?\d{3}`,
			`(?:asus\s+)?zenbook\s+\d{1,2}[a-z]?`,
			`(?:microsoft\s+)?surface\s+laptop\s+\d{1,2}`,
			`(?:samsung\s+)?galaxy\s+book\s?\d?`,
			`(?:lenovo\s+)?ideapad\s+\d{1,3}[a-z]?`,
		),
		priceMin: 200,
		priceMax: 6000,
	},
	"tablet": {
		names: compile(
			`(?:apple\s+)?ipad(?:\s+(?:air|pro|mini))?(?:\s+\d{1,2})?`,
			`(?:samsung\s+)?galaxy\s+tab\s+[a-z]\d{1,2}`,
			`(?:microsoft\s+)?surface\s+(?:pro|go)\s+\d{1,2}`,
			`(?:huawei\s+)?matepad\s+\d{1,2}`,
			`(?:xiaomi\s+)?pad\s+\d`,
		),
		priceMin: 80,
		priceMax: 3000,
	},
	"wearable": {
		names: compile(
			`(?:samsung\s+)?galaxy\s+watch\s?\d`,
			`apple\s+watch(?:\s+(?:series|ultra))?\s+\d{1,2}`,
			`(?:google\s+)?pixel\s+watch\s?\d?`,
			`fitbit\s+[a-z]+\s?\d?`,
			`garmin\s+[a-z]+\s?\d{0,3}`,
			`(?:xiaomi\s+)?(?:mi|smart)\s+band\s+\d{1,2}`,
		),
		priceMin: 30,
		priceMax: 1500,
	},
	"audio": {
		names: compile(
			`(?:apple\s+)?airpods(?:\s+(?:pro|max))?(?:\s+\d)?`,
			`(?:samsung\s+)?galaxy\s+buds\s?\d?`,
			`(?:google\s+)?pixel\s+buds(?:\s+[a-z]-series)?`,
			`(?:sony\s+)?w[hf]-[a-z0-9]{3,8}`,
			`(?:bose\s+)?quietcomfort\s+(?:ultra|\d{2,3})`,
			`(?:huawei\s+)?freebuds\s+\d`,
		),
		priceMin: 20,
		priceMax: 1200,
	},
	"tv": {
		names: compile(
			`(?:samsung\s+)?(?:neo\s+)?qled\s+qn\d{2,3}[a-z]?`,
			`(?:lg\s+)?oled\s+[a-z]\d{1,2}`,
			`(?:sony\s+)?bravia\s+(?:xr\s+)?[a-z]?\d{2,3}[a-z]?`,
			`(?:samsung\s+)?the\s+frame`,
			`(?:tcl|hisense)\s+[a-z]?\d{2,4}[a-z]{0,2}`,
		),
		priceMin: 150,
		priceMax: 10000,
	},
}

// defaultPatterns is the catch-all for unknown categories: a capitalized
// brand word followed by a model token. Case-sensitive on purpose to keep
// the noise down when no category rules apply.
var defaultPatterns = categoryPatterns{
	names: []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z][A-Za-z]{2,}\s+[A-Z]?\d{1,3}[A-Za-z]{0,4}` +
			`(?:\s+(?:Pro|Plus|Ultra|Max|Mini|Lite|FE|SE|Air))*\b`),
	},
	priceMin: 10,
	priceMax: 20000,
}

// patternsFor resolves the rule set for a request category. Categories are
// matched on their singular lowercase form ("Smartphones" and "smartphone"
// hit the same entry).
func patternsFor(category string) categoryPatterns {
	key := strings.ToLower(strings.TrimSpace(category))
	key = strings.TrimSuffix(key, "s")
	if p, ok := categoryTable[key]; ok {
		return p
	}
	return defaultPatterns
}

// Package fallback serves a small curated entity dataset when live discovery
// comes up empty. The data ships embedded in the binary so the terminal
// fallback can never itself fail on I/O.
package fallback

import (
	_ "embed"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-scout/internal/extract"
	"github.com/sells-group/market-scout/internal/model"
)

//go:embed datasets.yaml
var rawDatasets []byte

type entry struct {
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
	Year  int     `yaml:"year"`
}

type category struct {
	Competitors []entry `yaml:"competitors"`
	Products    []entry `yaml:"products"`
}

type datasets struct {
	Default    string              `yaml:"default"`
	Categories map[string]category `yaml:"categories"`
}

var (
	loadOnce sync.Once
	loaded   datasets
	loadErr  error
)

func load() (datasets, error) {
	loadOnce.Do(func() {
		loadErr = yaml.Unmarshal(rawDatasets, &loaded)
		if loadErr != nil {
			loadErr = eris.Wrap(loadErr, "fallback: parse embedded datasets")
		}
	})
	return loaded, loadErr
}

// Entities returns the curated entity list for a request. Unknown categories
// map to the default dataset; an unknown mode behaves as competitor lookup.
// Entities carrying the subject's own name are filtered out.
func Entities(req model.DiscoveryRequest) ([]model.CanonicalEntity, error) {
	ds, err := load()
	if err != nil {
		return nil, err
	}

	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(req.Category)), "s")
	cat, ok := ds.Categories[key]
	if !ok {
		cat = ds.Categories[ds.Default]
	}

	entries := cat.Competitors
	if req.Mode == model.ModeProducts {
		entries = cat.Products
	}

	self := extract.Normalize(req.Subject)
	now := time.Now()
	out := make([]model.CanonicalEntity, 0, len(entries))
	for _, e := range entries {
		normalized := extract.Normalize(e.Name)
		if normalized == "" || normalized == self {
			continue
		}
		out = append(out, model.CanonicalEntity{
			Name:           e.Name,
			NormalizedName: normalized,
			Sources:        []string{"fallback"},
			Price:          e.Price,
			Year:           e.Year,
			Tier:           model.TierEmerging,
			FirstObserved:  now,
		})
	}
	return out, nil
}

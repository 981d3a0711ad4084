package extract

import (
	"fmt"
	"time"

	"github.com/sells-group/market-scout/internal/model"
)

// Terms generates the search terms a connector should query for one request.
// Competitor mode asks comparison-style questions; product mode digs through
// a brand's back catalog.
func Terms(req model.DiscoveryRequest) []string {
	switch req.Mode {
	case model.ModeProducts:
		brand := req.Brand
		if brand == "" {
			brand = req.Subject
		}
		return []string{
			fmt.Sprintf("%s %s lineup", brand, req.Category),
			fmt.Sprintf("%s previous models", brand),
			fmt.Sprintf("%s predecessor", req.Subject),
		}
	default:
		return []string{
			fmt.Sprintf("%s vs", req.Subject),
			fmt.Sprintf("%s alternatives", req.Subject),
			fmt.Sprintf("best %s %d", req.Category, time.Now().Year()),
		}
	}
}

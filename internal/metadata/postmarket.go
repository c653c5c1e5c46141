package metadata

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
)

// RunnerInfo is the {name, id, bsp?} shape used for both winnerInfo and
// each entry of favouriteInfo.
type RunnerInfo struct {
	Name string           `json:"name"`
	ID   int64            `json:"id"`
	BSP  *decimal.Decimal `json:"bsp,omitempty"`
}

// extractWinnerFavourites computes winnerInfo (the first WINNER-status
// runner) and favouriteInfo (runners with a bsp, ascending) from the final
// market definition's runners. Either return may be nil.
func extractWinnerFavourites(runners []bfdata.RunnerDefinition) (*RunnerInfo, []RunnerInfo) {
	var winner *RunnerInfo
	var withBSP []RunnerInfo

	for _, r := range runners {
		if winner == nil && r.Status == bfdata.StatusWinner {
			info := RunnerInfo{Name: r.Name, ID: r.ID, BSP: r.BSP}
			winner = &info
		}
		if r.BSP != nil {
			withBSP = append(withBSP, RunnerInfo{Name: r.Name, ID: r.ID, BSP: r.BSP})
		}
	}

	if len(withBSP) == 0 {
		return winner, nil
	}
	sort.SliceStable(withBSP, func(i, j int) bool {
		return withBSP[i].BSP.LessThan(*withBSP[j].BSP)
	})
	return winner, withBSP
}

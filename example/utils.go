package example

import (
	"fmt"
	"strings"

	"github.com/patrikhermansson/mff/ledger"
	"github.com/patrikhermansson/mff/sampling"
)

// FormatIndex returns the first maxResults training indices of idx.
func FormatIndex(idx []int, maxResults int) string {
	limit := min(maxResults, len(idx))
	parts := make([]string, 0, limit+1)
	for _, i := range idx[:limit] {
		parts = append(parts, fmt.Sprintf("%d", i))
	}
	if len(idx) > limit {
		parts = append(parts, fmt.Sprintf("... (%d more)", len(idx)-limit))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// FormatResult returns a one-line summary of a strategy result.
func FormatResult(req sampling.Request, res sampling.Result, maxResults int) string {
	return fmt.Sprintf("%-6s %-14s n=%-4d MAE=%.4f SMAE=%.4f RMSE=%.4f (%.2fs) %s",
		req.Strategy, req.Method, len(res.Index), res.MAE, res.SMAE, res.RMSE,
		res.Elapsed.Seconds(), FormatIndex(res.Index, maxResults))
}

// FormatRun returns a one-line summary of a recorded run.
func FormatRun(run ledger.Run) string {
	return fmt.Sprintf("%s %-6s %-14s n=%-4d MAE=%.4f RMSE=%.4f",
		run.CreatedAt.Format("2006-01-02 15:04:05"), run.Strategy, run.Method, run.NTrain, run.MAE, run.RMSE)
}

// Best returns the run with the lowest MAE, or false when runs is empty.
func Best(runs []ledger.Run) (ledger.Run, bool) {
	if len(runs) == 0 {
		return ledger.Run{}, false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.MAE < best.MAE {
			best = r
		}
	}
	return best, true
}

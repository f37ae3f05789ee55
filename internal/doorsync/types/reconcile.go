package types

import "time"

type ReconcileResult struct {
	ControllerID     uint32    `json:"controller_id"`
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	Fetched          int       `json:"fetched"`
	Inserted         int       `json:"inserted"`
	SkippedDuplicate int       `json:"skipped_duplicate"`
	SkippedUnknown   int       `json:"skipped_unknown"`
	Errors           int       `json:"errors"`
	Err              string    `json:"error,omitempty"`
}

// Failed reports whether the run aborted before committing.
func (r ReconcileResult) Failed() bool { return r.Err != "" }

// ReconcileSummary aggregates the results of one pass over all controllers.
type ReconcileSummary struct {
	Inserted         int               `json:"inserted"`
	SkippedDuplicate int               `json:"skipped_duplicate"`
	SkippedUnknown   int               `json:"skipped_unknown"`
	Errors           int               `json:"errors"`
	FailedCount      int               `json:"failed_controllers"`
	Results          []ReconcileResult `json:"results"`
}

func Summarize(results []ReconcileResult) ReconcileSummary {
	s := ReconcileSummary{Results: results}
	for _, r := range results {
		s.Inserted += r.Inserted
		s.SkippedDuplicate += r.SkippedDuplicate
		s.SkippedUnknown += r.SkippedUnknown
		s.Errors += r.Errors
		if r.Failed() {
			s.FailedCount++
		}
	}
	return s
}

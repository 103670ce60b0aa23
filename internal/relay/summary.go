package relay

import "time"

// SourceCount is the number of candidates one source produced in a run.
type SourceCount struct {
	Name       string `json:"name"`
	Candidates int    `json:"candidates"`
}

// Summary describes one run.
type Summary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Sources []SourceCount `json:"sources"`

	Sent      int `json:"sent"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`

	// EditFailures counts edits that failed and were skipped.
	EditFailures int `json:"edit_failures"`

	// SentIDs and UpdatedIDs list affected post ids in processing order.
	SentIDs    []string `json:"sent_ids,omitempty"`
	UpdatedIDs []string `json:"updated_ids,omitempty"`
}

// Candidates returns the total number of candidates fetched.
func (s Summary) Candidates() int {
	n := 0
	for _, src := range s.Sources {
		n += src.Candidates
	}
	return n
}

func (s *Summary) record(id string, a Action) {
	switch a {
	case ActionSent:
		s.Sent++
		s.SentIDs = append(s.SentIDs, id)
	case ActionUpdated:
		s.Updated++
		s.UpdatedIDs = append(s.UpdatedIDs, id)
	default:
		s.Unchanged++
	}
}

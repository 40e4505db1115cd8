package availability

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/narwhalmedia/availability/internal/domain/media"
)

// MatchPolicy controls how series requests are deduplicated within a run.
type MatchPolicy string

const (
	// MatchPolicyRequest notifies every fully satisfied request exactly once.
	MatchPolicyRequest MatchPolicy = "request"

	// MatchPolicyFirstMatch notifies only the first satisfied request per
	// changed season and marks all of its seasons processed. Later requests
	// with the same season set are not notified in that run.
	MatchPolicyFirstMatch MatchPolicy = "first_match"
)

// ParseMatchPolicy validates a configured policy name. The empty string
// selects MatchPolicyRequest.
func ParseMatchPolicy(value string) (MatchPolicy, error) {
	switch MatchPolicy(value) {
	case "", MatchPolicyRequest:
		return MatchPolicyRequest, nil
	case MatchPolicyFirstMatch:
		return MatchPolicyFirstMatch, nil
	}
	return "", fmt.Errorf("unknown match policy %q", value)
}

// SatisfiedRequest is a request whose whole content is available as of the
// current transition.
type SatisfiedRequest struct {
	Request media.Request
	// Seasons is the sorted season set of the request; nil for movies.
	Seasons []int
}

// Matcher selects the requests that a change set satisfies.
type Matcher struct {
	policy MatchPolicy
}

// NewMatcher creates a matcher with the given policy.
func NewMatcher(policy MatchPolicy) *Matcher {
	if policy == "" {
		policy = MatchPolicyRequest
	}
	return &Matcher{policy: policy}
}

// MatchAndSelect returns the requests to notify, in notification order.
// pending must be in stable query order; it is never modified.
func (m *Matcher) MatchAndSelect(item media.MediaItem, changes ChangeSet, pending []media.Request) []SatisfiedRequest {
	if changes.Empty() || len(pending) == 0 {
		return nil
	}

	if item.IsMovie() {
		satisfied := make([]SatisfiedRequest, 0, len(pending))
		for _, req := range pending {
			satisfied = append(satisfied, SatisfiedRequest{Request: req})
		}
		return satisfied
	}

	if m.policy == MatchPolicyFirstMatch {
		return matchFirst(item, changes, pending)
	}
	return matchEvery(item, changes, pending)
}

// completes reports whether req is fully covered by available and was
// completed by changed.
func completes(req media.Request, changed int, available map[int]struct{}) bool {
	return req.ContainsSeason(changed) && req.CoveredBy(available)
}

func matchEvery(item media.MediaItem, changes ChangeSet, pending []media.Request) []SatisfiedRequest {
	available := item.AvailableSeasonSet()
	notified := make(map[uuid.UUID]struct{})

	var satisfied []SatisfiedRequest
	for _, changed := range changes.Seasons {
		for _, req := range pending {
			if _, done := notified[req.ID]; done {
				continue
			}
			if !completes(req, changed, available) {
				continue
			}
			notified[req.ID] = struct{}{}
			satisfied = append(satisfied, SatisfiedRequest{Request: req, Seasons: req.SortedSeasons()})
		}
	}
	return satisfied
}

func matchFirst(item media.MediaItem, changes ChangeSet, pending []media.Request) []SatisfiedRequest {
	available := item.AvailableSeasonSet()
	processed := make(map[int]struct{})

	var satisfied []SatisfiedRequest
	for _, changed := range changes.Seasons {
		if _, done := processed[changed]; done {
			continue
		}

		var found *media.Request
		for i := range pending {
			if completes(pending[i], changed, available) {
				found = &pending[i]
				break
			}
		}
		if found == nil {
			continue
		}

		for _, s := range found.Seasons {
			processed[s] = struct{}{}
		}
		satisfied = append(satisfied, SatisfiedRequest{Request: *found, Seasons: found.SortedSeasons()})
	}
	return satisfied
}

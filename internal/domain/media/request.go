package media

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestStatus tracks a request through approval.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusAvailable RequestStatus = "available"
)

// PendingRequestStatuses are the statuses still awaiting availability.
var PendingRequestStatuses = []RequestStatus{RequestStatusPending, RequestStatusApproved}

// IsPending reports whether a request in this status can still be satisfied.
func (s RequestStatus) IsPending() bool {
	for _, p := range PendingRequestStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Requester identifies the user to notify.
type Requester struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
}

// Request is a user's ask to be notified about a media item. Seasons is
// empty for movie requests.
type Request struct {
	ID          uuid.UUID     `json:"id"`
	MediaID     uuid.UUID     `json:"media_id"`
	RequestedBy Requester     `json:"requested_by"`
	Status      RequestStatus `json:"status"`
	Seasons     []int         `json:"seasons,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ContainsSeason reports whether the request asked for season.
func (r Request) ContainsSeason(season int) bool {
	for _, s := range r.Seasons {
		if s == season {
			return true
		}
	}
	return false
}

// CoveredBy reports whether every requested season is in available.
// A request without seasons is trivially covered.
func (r Request) CoveredBy(available map[int]struct{}) bool {
	for _, s := range r.Seasons {
		if _, ok := available[s]; !ok {
			return false
		}
	}
	return true
}

// SortedSeasons returns a sorted copy of the requested seasons.
func (r Request) SortedSeasons() []int {
	seasons := make([]int, len(r.Seasons))
	copy(seasons, r.Seasons)
	sort.Ints(seasons)
	return seasons
}

// SeasonList renders the requested seasons as "1, 2, 3".
func (r Request) SeasonList() string {
	seasons := r.SortedSeasons()
	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}

package queries

import (
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

// OverdueAfter is how long an unanswered query may wait before it is flagged.
const OverdueAfter = 48 * time.Hour

// Duration is an elapsed span split into whole hours, minutes and seconds.
type Duration struct {
	Hours        int     `json:"hours"`
	Minutes      int     `json:"minutes"`
	Seconds      int     `json:"seconds"`
	TotalSeconds float64 `json:"total_seconds"`
}

// IsFullyResponded is true when the query has cables and every one carries a response.
func IsFullyResponded(q *models.Query) bool {
	if q == nil || len(q.Cables) == 0 {
		return false
	}
	for i := range q.Cables {
		if q.Cables[i].Response == nil {
			return false
		}
	}
	return true
}

// LatestResponseAt returns the newest response timestamp across the query's cables.
func LatestResponseAt(q *models.Query) (time.Time, bool) {
	var latest time.Time
	found := false
	if q == nil {
		return latest, false
	}
	for i := range q.Cables {
		resp := q.Cables[i].Response
		if resp == nil {
			continue
		}
		at := timeutil.ToLocal(resp.RespondedAt)
		if !found || at.After(latest) {
			latest = at
			found = true
		}
	}
	return latest, found
}

// IsOverdue reports an unanswered query submitted more than OverdueAfter before now.
func IsOverdue(q *models.Query, now time.Time) bool {
	if q == nil || IsFullyResponded(q) {
		return false
	}
	return now.Sub(timeutil.ToLocal(q.SubmittedAt)) > OverdueAfter
}

// Elapsed measures a fully responded query up to its slowest response and any other
// query up to now.
func Elapsed(q *models.Query, now time.Time) Duration {
	end := now
	if IsFullyResponded(q) {
		if latest, ok := LatestResponseAt(q); ok {
			end = latest
		}
	}
	return splitDuration(end.Sub(timeutil.ToLocal(q.SubmittedAt)))
}

// ResponseTime returns submission to latest response for fully responded queries.
// A response stamped before the submission counts as zero.
func ResponseTime(q *models.Query) (time.Duration, bool) {
	if !IsFullyResponded(q) {
		return 0, false
	}
	latest, _ := LatestResponseAt(q)
	d := latest.Sub(timeutil.ToLocal(q.SubmittedAt))
	if d < 0 {
		d = 0
	}
	return d, true
}

// UnreadCommentCount counts comments still flagged unread.
func UnreadCommentCount(q *models.Query) int {
	if q == nil {
		return 0
	}
	n := 0
	for i := range q.Comments {
		if !q.Comments[i].IsRead {
			n++
		}
	}
	return n
}

func splitDuration(d time.Duration) Duration {
	// Clock skew between writers can put a response before submission.
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return Duration{
		Hours:        int(total / 3600),
		Minutes:      int(total % 3600 / 60),
		Seconds:      int(total % 60),
		TotalSeconds: d.Seconds(),
	}
}

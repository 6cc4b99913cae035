package queries

import (
	"testing"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

func localTime(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, timeutil.Location())
}

func answeredCable(at time.Time) models.Cable {
	return models.Cable{CableType: "YKY 5x10", Response: &models.CableResponse{RespondedAt: timeutil.Wall(at)}}
}

func TestIsFullyRespondedRejectsEmptyQuery(t *testing.T) {
	if IsFullyResponded(&models.Query{}) {
		t.Fatal("query without cables must not count as responded")
	}
	if IsFullyResponded(nil) {
		t.Fatal("nil query must not count as responded")
	}
	q := &models.Query{Cables: []models.Cable{answeredCable(time.Now()), {CableType: "YDY"}}}
	if IsFullyResponded(q) {
		t.Fatal("partially answered query reported as responded")
	}
	q.Cables[1] = answeredCable(time.Now())
	if !IsFullyResponded(q) {
		t.Fatal("expected responded")
	}
}

func TestIsOverdueBoundary(t *testing.T) {
	submitted := localTime(2026, 5, 4, 9, 0)
	q := &models.Query{SubmittedAt: timeutil.Wall(submitted), Cables: []models.Cable{{CableType: "YKY"}}}

	if IsOverdue(q, submitted.Add(OverdueAfter-time.Second)) {
		t.Fatal("not overdue just before 48h")
	}
	if IsOverdue(q, submitted.Add(OverdueAfter)) {
		t.Fatal("exactly 48h is not overdue")
	}
	if !IsOverdue(q, submitted.Add(OverdueAfter+time.Second)) {
		t.Fatal("expected overdue after 48h")
	}

	q.Cables[0] = answeredCable(submitted.Add(100 * time.Hour))
	if IsOverdue(q, submitted.Add(500*time.Hour)) {
		t.Fatal("answered query is never overdue")
	}
}

func TestIsOverdueReadsNaiveTimestampAsLocal(t *testing.T) {
	submitted := localTime(2026, 7, 1, 10, 0)
	// Stored as the wall clock without zone; reading it as UTC would shift it by two hours.
	q := &models.Query{SubmittedAt: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC), Cables: []models.Cable{{}}}
	now := submitted.Add(OverdueAfter + 30*time.Minute)
	if !IsOverdue(q, now) {
		t.Fatal("expected overdue when measured in local time")
	}
	if IsOverdue(q, submitted.Add(OverdueAfter-90*time.Minute)) {
		t.Fatal("utc interpretation leaked into the comparison")
	}
}

func TestElapsedUsesLatestResponse(t *testing.T) {
	submitted := localTime(2026, 5, 4, 9, 0)
	q := &models.Query{
		SubmittedAt: timeutil.Wall(submitted),
		Cables: []models.Cable{
			answeredCable(submitted.Add(3 * time.Hour)),
			answeredCable(submitted.Add(10*time.Hour + 5*time.Minute + 7*time.Second)),
		},
	}
	got := Elapsed(q, submitted.Add(72*time.Hour))
	if got.Hours != 10 || got.Minutes != 5 || got.Seconds != 7 {
		t.Fatalf("expected 10h5m7s, got %+v", got)
	}
	if got.TotalSeconds != 36307 {
		t.Fatalf("unexpected total seconds %v", got.TotalSeconds)
	}
}

func TestElapsedTruncatesPendingToNow(t *testing.T) {
	submitted := localTime(2026, 5, 4, 9, 0)
	q := &models.Query{SubmittedAt: timeutil.Wall(submitted), Cables: []models.Cable{answeredCable(submitted), {}}}
	got := Elapsed(q, submitted.Add(2*time.Hour+59*time.Minute+59*time.Second+900*time.Millisecond))
	if got.Hours != 2 || got.Minutes != 59 || got.Seconds != 59 {
		t.Fatalf("expected truncated 2h59m59s, got %+v", got)
	}
}

func TestResponseTime(t *testing.T) {
	submitted := localTime(2026, 5, 4, 9, 0)
	q := &models.Query{SubmittedAt: timeutil.Wall(submitted), Cables: []models.Cable{answeredCable(submitted.Add(90 * time.Minute))}}
	d, ok := ResponseTime(q)
	if !ok || d != 90*time.Minute {
		t.Fatalf("expected 90m, got %v ok=%v", d, ok)
	}
	if _, ok := ResponseTime(&models.Query{}); ok {
		t.Fatal("no response time without cables")
	}
}

func TestUnreadCommentCount(t *testing.T) {
	q := &models.Query{Comments: []models.Comment{{IsRead: false}, {IsRead: true}, {IsRead: false}}}
	if got := UnreadCommentCount(q); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}
}

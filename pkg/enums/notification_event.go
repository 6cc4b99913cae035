package enums

// NotificationEvent names a dispatcher callback, used for logging and metrics labels.
type NotificationEvent string

const (
	NotificationEventQuerySubmitted    NotificationEvent = "query_submitted"
	NotificationEventResponsesRecorded NotificationEvent = "responses_recorded"
	NotificationEventQueryReminder     NotificationEvent = "query_reminder"
	NotificationEventDailyReport       NotificationEvent = "daily_report"
	NotificationEventWeeklyReport      NotificationEvent = "weekly_report"
)

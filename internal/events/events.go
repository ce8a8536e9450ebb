package events

var MatchFoundTopic = "MatchFoundEvent"

type MatchFound struct {
	UserID  string
	MatchID string
	Title   string
	Company string
	Score   int
	URL     string
}

var SwipeRecordedTopic = "SwipeRecordedEvent"

type SwipeRecorded struct {
	UserID  string
	MatchID string
	Action  string
}

var ApprovalQueuedTopic = "ApprovalQueuedEvent"

type ApprovalQueued struct {
	UserID      string
	ActionID    string
	Kind        string
	Description string
}

package events

import (
	"time"
)

// Push payload types shared between the session synchronizer and the
// projection gateway.

// StatusPayload is the body of a status topic message.
type StatusPayload struct {
	Status    string     `json:"status"`
	StartTime *time.Time `json:"startTime,omitempty"`
}

// ScoreSubmittedPayload is the body of a judge-score topic message.
// SubmittedAt is kept as the raw wire string so the dedup key matches the
// server's formatting byte for byte.
type ScoreSubmittedPayload struct {
	AssessorID  string  `json:"assessorId,omitempty"`
	Score       float64 `json:"score"`
	SubmittedAt string  `json:"submittedAt,omitempty"`
}

// JudgeConnectionsPayload is the body of a judge-connections topic message.
type JudgeConnectionsPayload struct {
	ConnectedCount     int      `json:"connectedCount"`
	ConnectedAssessors []string `json:"connectedAssessors,omitempty"`
}

// ConnectionsRequestPayload solicits an immediate connection-count snapshot
// from the scoring server.
type ConnectionsRequestPayload struct {
	MatchID string `json:"matchId"`
}

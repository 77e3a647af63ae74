package events

import "fmt"

// Subject layout: score.<sessionID>.<topic>. Each open session owns its own
// topic subscriptions; the connections request subject is global.

const ConnectionsRequestSubject = "score.connections.request"

// StatusSubject is the topic carrying lifecycle status pushes for a session.
func StatusSubject(sessionID string) string {
	return fmt.Sprintf("score.%s.status", sessionID)
}

// JudgeScoreSubject is the topic carrying score submissions for a session.
func JudgeScoreSubject(sessionID string) string {
	return fmt.Sprintf("score.%s.judge-score", sessionID)
}

// JudgeConnectionsSubject is the topic carrying connection-count updates for
// a session.
func JudgeConnectionsSubject(sessionID string) string {
	return fmt.Sprintf("score.%s.judge-connections", sessionID)
}

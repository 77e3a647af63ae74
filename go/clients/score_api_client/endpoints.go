package score_api_client

const (
	// API Endpoints
	PerformanceByIDEndpoint    = "/api/performances/%s"
	PerformanceByMatchEndpoint = "/api/performances/by-match/%s"
	PerformanceMatchEndpoint   = "/api/performances/%s/match"
	MatchStatusEndpoint        = "/api/matches/%s/match-status/%s"
	ScheduledStartTimeEndpoint = "/api/matches/%s/scheduled-start-time"
	AthletePresenceEndpoint    = "/api/matches/%s/athlete-presence"
)

package score_api_client

import (
	"github.com/openmat/scorecast/go/clients"
)

// ScoreApiClient talks to the tournament scoring server's REST API. The
// server is authoritative for persistence and lifecycle; this client only
// reads snapshots and requests transitions.
type ScoreApiClient struct {
	*clients.BaseClient
}

func NewScoreApiClient(baseURL string) *ScoreApiClient {
	return &ScoreApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
}

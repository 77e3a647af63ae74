package score_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type AssessorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AthleteResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// PerformanceResponse is the session snapshot returned by the server.
type PerformanceResponse struct {
	ID        string             `json:"id"`
	MatchID   string             `json:"matchId"`
	Status    string             `json:"status"`
	Assessors []AssessorResponse `json:"assessors"`
	Athletes  []AthleteResponse  `json:"athletes"`
}

// PerformanceMatchResponse carries the match-level settings for a
// performance: round length, field assignment, scheduling and lifecycle.
type PerformanceMatchResponse struct {
	MatchID            string     `json:"matchId"`
	FieldID            string     `json:"fieldId"`
	DurationSeconds    int        `json:"durationSeconds"`
	ScheduledStartTime *time.Time `json:"scheduledStartTime"`
	Status             string     `json:"status"`
	StartTime          *time.Time `json:"startTime"`
}

// MatchStatusResponse is the server's authoritative reply to a status
// transition request. StartTime is set when the transition began the match.
type MatchStatusResponse struct {
	Status    string     `json:"status"`
	StartTime *time.Time `json:"startTime"`
}

func (c *ScoreApiClient) GetPerformance(ctx context.Context, performanceID string) (*PerformanceResponse, error) {
	body, err := c.Get(ctx, fmt.Sprintf(PerformanceByIDEndpoint, performanceID))
	if err != nil {
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}

	var response PerformanceResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return &response, nil
}

func (c *ScoreApiClient) GetPerformanceByMatch(ctx context.Context, matchID string) (*PerformanceResponse, error) {
	body, err := c.Get(ctx, fmt.Sprintf(PerformanceByMatchEndpoint, matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to get performance by match: %w", err)
	}

	var response PerformanceResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return &response, nil
}

func (c *ScoreApiClient) GetPerformanceMatch(ctx context.Context, performanceID string) (*PerformanceMatchResponse, error) {
	body, err := c.Get(ctx, fmt.Sprintf(PerformanceMatchEndpoint, performanceID))
	if err != nil {
		return nil, fmt.Errorf("failed to get performance match: %w", err)
	}

	var response PerformanceMatchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return &response, nil
}

// UpdateMatchStatus requests a lifecycle transition. The server treats
// repeated calls with the same status as a no-op, so retries are safe.
func (c *ScoreApiClient) UpdateMatchStatus(ctx context.Context, matchID, status string) (*MatchStatusResponse, error) {
	body, err := c.Put(ctx, fmt.Sprintf(MatchStatusEndpoint, matchID, status), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update match status: %w", err)
	}

	var response MatchStatusResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return &response, nil
}

// UpdateScheduledStartTime sets or clears the scheduled start of a match.
func (c *ScoreApiClient) UpdateScheduledStartTime(ctx context.Context, matchID string, scheduledStart *time.Time) error {
	payload := struct {
		ScheduledStartTime *time.Time `json:"scheduledStartTime"`
	}{ScheduledStartTime: scheduledStart}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal scheduled start time: %w", err)
	}
	if _, err := c.Patch(ctx, fmt.Sprintf(ScheduledStartTimeEndpoint, matchID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to update scheduled start time: %w", err)
	}
	return nil
}

// UpdateAthletePresence records which athletes are confirmed present.
func (c *ScoreApiClient) UpdateAthletePresence(ctx context.Context, matchID string, present map[string]bool) error {
	payload := struct {
		AthletesPresent map[string]bool `json:"athletesPresent"`
	}{AthletesPresent: present}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal athlete presence: %w", err)
	}
	if _, err := c.Patch(ctx, fmt.Sprintf(AthletePresenceEndpoint, matchID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to update athlete presence: %w", err)
	}
	return nil
}

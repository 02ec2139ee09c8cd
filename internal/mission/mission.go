// Package mission asks the inference service for a personalized daily goal.
package mission

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/inference"
	"github.com/p-n-ai/pai-study/internal/progress"
)

const (
	DefaultPersona     = "explorer"
	DefaultDisplayName = "Student"
)

// Mission is a generated daily goal. It is never cached.
type Mission struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	RewardPoints int    `json:"reward_points"`
}

// Request is what the planner needs to know about the student.
type Request struct {
	DisplayName string
	Persona     string
	Snapshot    progress.Snapshot
	Recent      []activity.Event
}

// Planner requests missions.
type Planner struct {
	svc inference.Service
}

func NewPlanner(svc inference.Service) *Planner {
	return &Planner{svc: svc}
}

// Plan issues exactly one mission request.
func (p *Planner) Plan(ctx context.Context, req Request) (Mission, error) {
	resp, err := p.svc.Mission(ctx, BuildRequest(req))
	if err != nil {
		return Mission{}, fmt.Errorf("requesting mission: %w", err)
	}
	return Mission{
		Title:        resp.MissionTitle,
		Description:  resp.Description,
		RewardPoints: resp.RewardPoints,
	}, nil
}

// BuildRequest maps a planner request onto the wire payload.
func BuildRequest(req Request) inference.MissionRequest {
	name := req.DisplayName
	if name == "" {
		name = DefaultDisplayName
	}
	persona := req.Persona
	if persona == "" {
		persona = DefaultPersona
	}

	mastery := make(map[string]int, len(req.Snapshot.SubjectMastery))
	for k, v := range req.Snapshot.SubjectMastery {
		mastery[k] = v
	}

	recent := make([]inference.ActivityItem, 0, len(req.Recent))
	for _, e := range req.Recent {
		recent = append(recent, inference.ActivityItem{
			Type:      string(e.Kind),
			Timestamp: e.CreatedAt,
			Data:      e.Payload,
		})
	}

	return inference.MissionRequest{
		DisplayName:     name,
		Readiness:       req.Snapshot.Readiness,
		SubjectsMastery: mastery,
		RecentActivity:  recent,
		Persona:         persona,
	}
}

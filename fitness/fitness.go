// Package fitness holds the domain calls the rest of the application makes. They
// carry no session logic of their own: every call goes through the pipeline, which
// attaches the token and reacts to authorization failures.
package fitness

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-fitness-client/pipeline"
	"github.com/pkg/errors"
)

// Goal is a user's fitness goal. Dates are YYYY-MM-DD.
type Goal struct {
	ID          int     `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	StartDate   string  `json:"startDate,omitempty"`
	EndDate     string  `json:"endDate,omitempty"`
	TargetValue float64 `json:"targetValue"`
}

// DashboardStats are the user's workout statistics. Missing fields decode as zero.
type DashboardStats struct {
	TotalWorkouts       int     `json:"totalWorkouts"`
	TotalCaloriesBurned float64 `json:"totalCaloriesBurned"`
	AverageWorkoutTime  float64 `json:"averageWorkoutTime"` // minutes
	BestWorkoutTime     float64 `json:"bestWorkoutTime"`    // minutes
}

// Profile is the server's view of the logged in user.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Client calls the fitness endpoints.
type Client struct {
	api *pipeline.Client
}

// New creates a new Client.
func New(api *pipeline.Client) *Client {
	return &Client{api: api}
}

// ListGoals calls GET /goals.
func (c *Client) ListGoals(ctx context.Context) ([]Goal, error) {
	return Fetch[[]Goal](ctx, c.api, "/goals")
}

// CreateGoal calls POST /goals.
func (c *Client) CreateGoal(ctx context.Context, g Goal) (*Goal, error) {
	var out Goal
	if err := c.api.Do(ctx, http.MethodPost, "/goals", g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGoal calls PUT /goals/{id}.
func (c *Client) UpdateGoal(ctx context.Context, g Goal) (*Goal, error) {
	if g.ID == 0 {
		return nil, errors.New("[fitness.UpdateGoal] goal id is required")
	}
	var out Goal
	if err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/goals/%d", g.ID), g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardStats calls GET /dashboard.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats, err := Fetch[DashboardStats](ctx, c.api, "/dashboard")
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Profile calls GET /profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	p, err := Fetch[Profile](ctx, c.api, "/profile")
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Fetch GETs path and decodes the body into a T.
func Fetch[T any](ctx context.Context, api *pipeline.Client, path string) (T, error) {
	var out T
	err := api.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

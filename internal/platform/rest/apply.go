package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/autovagas/autovagas/internal/core"
)

// Apply submits an application for one listing. The board answers with
// the created application's identifier when it assigns one.
func (a *Adapter) Apply(ctx context.Context, job *core.Job, profile *core.CandidateProfile, message string) (*core.ApplicationResult, error) {
	apiURLApplications := fmt.Sprintf("%s%s", a.APIURL, applicationsPath)

	data := map[string]string{
		"job_id":    job.ExternalID,
		"applicant": profile.Email,
		"message":   message,
	}

	created, err := a.postFormData(ctx, apiURLApplications, data)
	if err != nil {
		return nil, err
	}

	result := &core.ApplicationResult{
		Job:       job,
		Platform:  a.name,
		Success:   true,
		Timestamp: time.Now(),
	}
	if id, ok := created["id"].(string); ok {
		result.ApplicationID = id
	}

	return result, nil
}

// ApplicationStatus fetches the board-side state of one application.
func (a *Adapter) ApplicationStatus(ctx context.Context, applicationID string) (string, error) {
	apiURLStatus := fmt.Sprintf("%s%s/%s", a.APIURL, applicationsPath, applicationID)

	var payload struct {
		Status string `json:"status"`
	}
	if err := a.getJSON(ctx, apiURLStatus, nil, &payload); err != nil {
		return "", fmt.Errorf("get application %s: %w", applicationID, err)
	}

	return payload.Status, nil
}

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"visitscheduler/pkg/model"
)

var ErrPrisonerNotFound = errors.New("prisoner not found")

type PrisonerClient struct {
	httpClient *HttpClient
}

func NewPrisonerClient(httpClient *HttpClient) *PrisonerClient {
	return &PrisonerClient{httpClient: httpClient}
}

type prisonerResponse struct {
	PrisonerID     string `json:"prisonerId"`
	PrisonID       string `json:"prisonId"`
	CellLocation   string `json:"cellLocation"`
	Category       string `json:"category"`
	IncentiveLevel struct {
		Code string `json:"code"`
	} `json:"incentiveLevel"`
}

// GetEligibilitySnapshot fetches the prisoner record and reduces it to the
// facts eligibility is decided on.
func (c *PrisonerClient) GetEligibilitySnapshot(ctx context.Context, prisonerID string) (*model.PrisonerEligibilitySnapshot, error) {
	resp, err := c.httpClient.GET(ctx, "/prisoner/"+url.PathEscape(prisonerID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prisoner %s: %w", prisonerID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrPrisonerNotFound
	default:
		return nil, fmt.Errorf("prisoner service returned %d: %s", resp.StatusCode, GetErrorMessage(resp))
	}

	var body prisonerResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("failed to decode prisoner %s: %w", prisonerID, err)
	}

	snapshot := &model.PrisonerEligibilitySnapshot{
		PrisonerID:     body.PrisonerID,
		PrisonCode:     body.PrisonID,
		Category:       body.Category,
		IncentiveLevel: body.IncentiveLevel.Code,
	}
	if body.CellLocation != "" {
		loc := model.ParseLocation(body.CellLocation)
		snapshot.Location = &loc
	}
	return snapshot, nil
}

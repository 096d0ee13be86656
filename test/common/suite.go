package common

import (
	"os"
	"strings"
	"testing"
	"time"
)

const (
	EnvReservationsURL = "TEST_RESERVATIONS_URL"
	EnvTemplatesURL    = "TEST_TEMPLATES_URL"
	EnvPrisonCode      = "TEST_PRISON_CODE"
	EnvPrisonerIDs     = "TEST_PRISONER_IDS"
)

// IntegrationTestSuite talks to running reservations and session-templates
// services. The prisoners listed in TEST_PRISONER_IDS must be known to the
// prisoner service those deployments point at and be held in TEST_PRISON_CODE.
type IntegrationTestSuite struct {
	Reservations *Client
	Templates    *Client
	PrisonCode   string
	PrisonerIDs  []string
}

func NewIntegrationTestSuite(t *testing.T) *IntegrationTestSuite {
	t.Helper()

	prisonCode := os.Getenv(EnvPrisonCode)
	prisonerIDs := splitList(os.Getenv(EnvPrisonerIDs))
	if prisonCode == "" || len(prisonerIDs) == 0 {
		t.Skipf("%s and %s must be set to run integration tests", EnvPrisonCode, EnvPrisonerIDs)
	}

	s := &IntegrationTestSuite{
		Reservations: NewClient(getEnv(EnvReservationsURL, "http://localhost:8080")),
		Templates:    NewClient(getEnv(EnvTemplatesURL, "http://localhost:8081")),
		PrisonCode:   prisonCode,
		PrisonerIDs:  prisonerIDs,
	}
	s.Reservations.WaitForHealthy(t, 30*time.Second)
	s.Templates.WaitForHealthy(t, 30*time.Second)
	return s
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

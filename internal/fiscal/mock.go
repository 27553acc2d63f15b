package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// MockClient fabricates CAE-style authorizations for environments without
// tax-authority connectivity.
type MockClient struct{}

// NewMockClient returns the fabricating client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Issue(_ context.Context, charge *models.Charge, docType enums.FiscalDocType) (IssueResult, error) {
	now := time.Now().UTC()
	short := strings.ToUpper(strings.ReplaceAll(charge.ID.String(), "-", "")[:12])
	return IssueResult{
		Reference: fmt.Sprintf("MOCK-%s-%d", docType.String(), charge.Number),
		CAE:       fmt.Sprintf("%s%s", now.Format("20060102"), short[:6]),
		CAEDue:    now.AddDate(0, 0, 10),
	}, nil
}

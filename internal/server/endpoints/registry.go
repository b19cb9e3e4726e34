package endpoints

import (
	"github.com/quorumtitle/abstractor/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Extraction pipeline
		&ProcessEndpoint{},
		&JobStatusEndpoint{},
		&JobResultEndpoint{},
		&CancelJobEndpoint{},
		&SubmitIdentityEndpoint{},
		&FundingPDFEndpoint{},

		// Validation and document generation
		&ValidateOnlyEndpoint{},
		&GenerateEndpoint{},

		// Observability
		&MetricsEndpoint{},
		&SwaggerEndpoint{},
	}
}

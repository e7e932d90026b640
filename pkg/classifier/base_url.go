package classifier

import "strings"

const (
	DevelopmentBaseURL = "http://localhost:8000"
	productionPath     = "/api"
)

// ResolveBaseURL picks the service endpoint for a deployment. Production
// deployments sit behind a reverse proxy that serves the API under /api on the
// given origin; everything else talks to a local instance.
func ResolveBaseURL(production bool, origin string) string {
	if !production {
		return DevelopmentBaseURL
	}
	return strings.TrimRight(origin, "/") + productionPath
}

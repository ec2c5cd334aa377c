// Package api holds the JSON wire contract between the mealsync client and
// the reference sync server.
package api

// Пути REST API, общие для сервера и клиента
const (
	PathHealth   = "/api/v1/health"
	PathRegister = "/api/v1/auth/register"
	PathLogin    = "/api/v1/auth/login"
	// PathSalt дополняется username
	PathSalt = "/api/v1/auth/salt/"
	// PathEntities дополняется типом сущности и, для PUT и DELETE, id
	PathEntities = "/api/v1/entities/"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

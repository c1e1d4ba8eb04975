package server

import (
	"github.com/spacemeshos/go-randomness/api/query"
)

// SystemStateResponse is the body of /v1/system_state. SystemState is null before genesis.
type SystemStateResponse struct {
	SystemState *query.SystemState `json:"systemState"`
	FeatureFlag *query.FeatureFlag `json:"featureFlag,omitempty"`
}

// ObjectResponse is the body of /v1/objects/{address}. Object is null for unknown addresses.
type ObjectResponse struct {
	Object *query.Object `json:"object"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

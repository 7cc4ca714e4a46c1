package replica

import "distributed-kvstore/internal/clock"

// Wire types shared between the HTTP surface (internal/api, which decodes
// and encodes them) and the peer client (which marshals and unmarshals the
// same shapes when talking to other replicas). Keeping one definition
// avoids the two sides drifting apart.

// CausalBody is embedded by every client-facing and peer-facing request
// that may carry causal-metadata. Value is only ever populated here for
// outbound marshaling (the peer client's replicated put/delete messages);
// inbound requests that require a value bind against PutBody instead, so
// Gin's required-field validation runs before the engine sees anything.
type CausalBody struct {
	Value          *string           `json:"value,omitempty"`
	CausalMetadata clock.VectorClock `json:"causal-metadata,omitempty"`
}

// PutBody is the request body for a PUT to /kvs/:key or
// /replica/kvs/:key/:origin, the two endpoints that require a value.
type PutBody struct {
	Value          string            `json:"value" binding:"required"`
	CausalMetadata clock.VectorClock `json:"causal-metadata,omitempty"`
}

// SocketAddressBody is the body of PUT/DELETE /view and /viewed.
type SocketAddressBody struct {
	SocketAddress string `json:"socket-address" binding:"required"`
}

// StateSnapshot is the body returned by GET /vckvs.
type StateSnapshot struct {
	VC  clock.VectorClock `json:"vc"`
	KVS map[string]string `json:"kvs"`
}

// KVResult is the response envelope for /kvs operations. Result is empty
// (and omitted) for a GET, which reports only value and causal-metadata.
type KVResult struct {
	Result         string            `json:"result,omitempty"`
	CausalMetadata clock.VectorClock `json:"causal-metadata,omitempty"`
	Value          string            `json:"value,omitempty"`
}

// ErrorBody is the failure envelope used across the whole HTTP surface.
type ErrorBody struct {
	Error string `json:"error"`
}

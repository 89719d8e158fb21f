// Package server exposes the discovery service over HTTP with fiber.
//
// Routes:
//
//	GET  /v1/profiles/:profileId/discover?limit=&cursor=
//	POST /v1/profiles/:profileId/interactions
//	GET  /v1/profiles/:profileId/candidates/:candidateId/explanation
//	GET  /healthz
//	GET  /metrics
package server

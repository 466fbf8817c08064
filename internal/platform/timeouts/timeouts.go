// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second

// ProviderRequest caps a single outbound call to a third-party API
// (payments, storage, completions).
const ProviderRequest = 20 * time.Second

// Narration caps the time a GM turn waits on the narration provider before
// falling back to template narration.
const Narration = 15 * time.Second

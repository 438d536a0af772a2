// Package logger holds one package-level types.Logger per subsystem.
// Every other package logs through one of these vars instead of importing
// a concrete backend directly; logger/zap.Init assigns them at startup.
package logger

import "github.com/tierforge/tierserve/types"

var (
	// Runtime logs process lifecycle: startup, shutdown, signal handling.
	Runtime types.Logger
	// Lifecycle logs the ordered bring-up/teardown of every component.
	Lifecycle types.Logger

	// Coordinator logs tier routing decisions: probe hits/misses, fallbacks,
	// backfill submissions.
	Coordinator types.Logger
	// Controller logs HTTP-layer request handling.
	Controller types.Logger
	// AuthGate logs bearer/tenant extraction and AAA enforcement.
	AuthGate types.Logger
	// Policy logs the policy snapshot and AuthInfo invalidation loops.
	Policy types.Logger
	// Refresolve logs reference-resolution HTTP round trips.
	Refresolve types.Logger

	// Database, Search, Cache log their respective tier driver's calls.
	Database types.Logger
	Search   types.Logger
	Cache    types.Logger

	// Identity logs token issuance/verification and LDAP enrichment.
	Identity types.Logger

	// Protocol logs the materializer's schema-to-route wiring.
	Protocol types.Logger
)

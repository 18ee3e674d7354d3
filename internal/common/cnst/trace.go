package cnst

// Tracer names used across the services
const (
	// TraceAuthz is the tracer name for hierarchy mutations
	TraceAuthz = "atelier/authz"
	// TraceGuard is the tracer name for per-request authorization
	TraceGuard = "atelier/guard"
)

// Common span names
const (
	SpanGuardProtect      = "guard.protect"
	SpanReactivate        = "authz.reactivate"
	SpanDeactivate        = "authz.deactivate"
	SpanTransferOwnership = "authz.transfer_ownership"
)

// Common attribute keys
const (
	AttrActorID       = "authz.actor_id"
	AttrTargetID      = "authz.target_id"
	AttrTenantID      = "authz.tenant_id"
	AttrGuardOutcome  = "guard.outcome"
	AttrGuardCacheHit = "guard.cache_hit"
)

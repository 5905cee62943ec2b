package gatesdk

// Service-token scopes. The gate authenticates calling services, not end
// users; each scope covers one class of operation.
const (
	// ScopeManage covers enrollment lifecycle: setup, confirm, disable,
	// recovery regeneration.
	ScopeManage = "gate:manage"

	// ScopeVerify covers login-time verification: codes, assertions,
	// recovery codes, remember tokens, session challenges and logout.
	ScopeVerify = "gate:verify"

	// ScopeRead covers reads: session state and enrollment listings.
	ScopeRead = "gate:read"
)

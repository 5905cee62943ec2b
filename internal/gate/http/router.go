package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/httpx"
	"github.com/copperline/gate/pkg/jwtx"
	"github.com/copperline/gate/pkg/slogx"

	_ "github.com/copperline/gate/api/gate" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	SecondFactorService *service.SecondFactorService
	SessionGateService  *service.SessionGateService
}

func NewRouter(verifier jwtx.Verifier, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTOTP()
	r.registerSecurityKeys()
	r.registerRecovery()
	r.registerSessions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Second Factor Gate API
//	@version		0.1.0
//	@description	Internal service driving second-factor enrollment, verification and session gating.
//	@description
//	@description				Callers are other services, authenticated with HS256 bearer tokens carrying gate:* scopes.
//
//	@contact.name				Copperline Team
//	@contact.url				https://github.com/copperline/gate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Service token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTOTP() {
	h := &TOTPHandler{SecondFactorService: r.SecondFactorService}

	// Verification endpoints carry the strict profile: they are the ones a
	// brute-force attempt hammers.
	r.Mux.Handle("POST /v1/accounts/{accountID}/totp",
		r.secured(h.HandleSetup, gatesdk.ScopeManage, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/totp/confirm",
		r.secured(h.HandleConfirm, gatesdk.ScopeManage, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/totp/verify",
		r.secured(h.HandleVerify, gatesdk.ScopeVerify, httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/accounts/{accountID}/totp",
		r.secured(h.HandleDisable, gatesdk.ScopeManage, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/accounts/{accountID}/factors",
		r.secured(h.HandleDisableAll, gatesdk.ScopeManage, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/remember/redeem",
		r.secured(h.HandleRedeemRemember, gatesdk.ScopeVerify, httpx.StrictLimit))

	eh := &EnrollmentHandler{SecondFactorService: r.SecondFactorService}
	r.Mux.Handle("GET /v1/accounts/{accountID}/enrollments",
		r.secured(eh.HandleList, gatesdk.ScopeRead, httpx.LenientLimit))
}

func (r *Router) registerSecurityKeys() {
	h := &SecurityKeyHandler{SecondFactorService: r.SecondFactorService}

	r.Mux.Handle("POST /v1/accounts/{accountID}/security-keys/registrations",
		r.secured(h.HandleStartRegistration, gatesdk.ScopeManage, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/security-keys/registrations/{challengeID}",
		r.secured(h.HandleFinishRegistration, gatesdk.ScopeManage, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/security-keys/assertions",
		r.secured(h.HandleStartAssertion, gatesdk.ScopeVerify, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/security-keys/assertions/{challengeID}",
		r.secured(h.HandleVerify, gatesdk.ScopeVerify, httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/accounts/{accountID}/security-keys",
		r.secured(h.HandleDisable, gatesdk.ScopeManage, httpx.ModerateLimit))
}

func (r *Router) registerRecovery() {
	h := &RecoveryHandler{SecondFactorService: r.SecondFactorService}

	r.Mux.Handle("POST /v1/accounts/{accountID}/recovery",
		r.secured(h.HandleRegenerate, gatesdk.ScopeManage, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/accounts/{accountID}/recovery/verify",
		r.secured(h.HandleVerify, gatesdk.ScopeVerify, httpx.StrictLimit))
}

func (r *Router) registerSessions() {
	h := &SessionHandler{SessionGateService: r.SessionGateService}

	r.Mux.Handle("POST /v1/sessions/{sessionID}/challenge",
		r.secured(h.HandleChallenge, gatesdk.ScopeVerify, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/sessions/{sessionID}",
		r.secured(h.HandleGet, gatesdk.ScopeRead, httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/sessions/{sessionID}",
		r.secured(h.HandleLogout, gatesdk.ScopeVerify, httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
}

// secured wraps a handler with the standard per-route chain: service-token
// authn, scope authz and a per-account rate limit.
func (r *Router) secured(h http.HandlerFunc, scope string, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(scope),
		httpx.RateLimitByAccount(limit),
	)
}

// Package rest is the HTTP facade of the integration engine. It exposes
// request creation, response processing and policy discovery to relying
// applications, authenticated with bearer tokens.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	signintegration "github.com/idsec-solutions/signservice-integration-sub001"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

// API endpoints.
const (
	createRequestEndpoint   = "/v1/requests"
	processResponseEndpoint = "/v1/responses"
	listPoliciesEndpoint    = "/v1/policies"
	getPolicyEndpoint       = "/v1/policies/{name}"
	healthEndpoint          = "/healthz"
)

// Controller routes API requests to the integration service.
type Controller struct {
	service *signintegration.IntegrationService
	auth    *Authenticator
	logger  *zap.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithAuthenticator enables bearer-token authentication on the API
// endpoints. Without it all callers share the anonymous identity.
func WithAuthenticator(auth *Authenticator) ControllerOption {
	return func(c *Controller) { c.auth = auth }
}

// NewController creates a controller for the given service.
func NewController(service *signintegration.IntegrationService, opts ...ControllerOption) *Controller {
	c := &Controller{service: service, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Router builds the HTTP router. The health endpoint is unauthenticated;
// everything else passes the authenticator when one is configured.
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc(healthEndpoint, c.health).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	if c.auth != nil {
		api.Use(c.auth.Middleware)
	}
	api.HandleFunc(createRequestEndpoint, c.createRequest).Methods(http.MethodPost)
	api.HandleFunc(processResponseEndpoint, c.processResponse).Methods(http.MethodPost)
	api.HandleFunc(listPoliciesEndpoint, c.listPolicies).Methods(http.MethodGet)
	api.HandleFunc(getPolicyEndpoint, c.getPolicy).Methods(http.MethodGet)
	return router
}

func (c *Controller) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Controller) createRequest(w http.ResponseWriter, r *http.Request) {
	var input domain.SignRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, c.logger, domain.BadRequestError("The request body is not valid JSON"))
		return
	}

	data, err := c.service.CreateSignRequest(r.Context(), &input, OwnerID(r.Context()))
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (c *Controller) processResponse(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, c.logger, domain.BadRequestError("The request body is not valid JSON"))
		return
	}

	result, err := c.service.ProcessSignResponse(r.Context(), req.SignResponse, req.RelayState,
		req.State, OwnerID(r.Context()), &signintegration.ProcessingOptions{ReturnAssertion: req.ReturnAssertion})
	if err != nil {
		// The terminal non-error outcomes are reported as a status, not as
		// an HTTP error: the transaction ended in an orderly way.
		if signintegration.IsUserCancelled(err) {
			writeJSON(w, http.StatusOK, ProcessResponse{Status: &SignatureStatus{
				Outcome:   StatusCancelled,
				RequestID: req.RelayState,
			}})
			return
		}
		if status, ok := signintegration.AsErrorStatus(err); ok {
			writeJSON(w, http.StatusOK, ProcessResponse{Status: &SignatureStatus{
				Outcome:   StatusError,
				RequestID: status.RequestID,
				Major:     status.Major,
				Minor:     status.Minor,
				Message:   status.Message,
			}})
			return
		}
		writeError(w, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{Result: result})
}

func (c *Controller) listPolicies(w http.ResponseWriter, r *http.Request) {
	names := c.service.Policies().Names()
	summaries := make([]PolicySummary, 0, len(names))
	for _, name := range names {
		policy, err := c.service.Policies().ByName(name)
		if err != nil {
			continue
		}
		summaries = append(summaries, policySummary(policy))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (c *Controller) getPolicy(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	policy, err := c.service.Policies().ByName(name)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, policySummary(policy))
}

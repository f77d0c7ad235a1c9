package services

import (
	"fmt"
	"net/http"

	"github.com/lborres/butaca/core"
)

// Operation ids adapters bind handlers to
const (
	OpListUsers   = "listUsers"
	OpRegister    = "register"
	OpLogin       = "login"
	OpLogout      = "logout"
	OpVerifyAdmin = "verifyAdmin"
	OpMakeAdmin   = "makeAdmin"
	OpRemoveAdmin = "removeAdmin"
	OpAdminsOnly  = "adminsOnly"
	OpHealth      = "health"
)

// BaseEndpoints returns the framework-agnostic route table. Paths are
// relative to the configured base path.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/users",
			Method: http.MethodGet,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpListUsers,
				Description: "List users ordered by email, one page at a time",
			},
		},
		{
			Path:   "/users/register",
			Method: http.MethodPost,
			Access: core.AccessAnonymous,
			Metadata: core.EndpointMetadata{
				OperationID: OpRegister,
				Description: "Register a user with email and password",
			},
		},
		{
			Path:   "/users/login",
			Method: http.MethodPost,
			Access: core.AccessAnonymous,
			Metadata: core.EndpointMetadata{
				OperationID: OpLogin,
				Description: "Exchange email and password for a token",
			},
		},
		{
			Path:   "/users/logout",
			Method: http.MethodPost,
			Access: core.AccessAnonymous,
			Metadata: core.EndpointMetadata{
				OperationID: OpLogout,
				Description: "Clear the auth cookie",
			},
		},
		{
			Path:   "/users/verify-admin",
			Method: http.MethodGet,
			Access: core.AccessAuthenticated,
			Metadata: core.EndpointMetadata{
				OperationID: OpVerifyAdmin,
				Description: "Report whether the caller currently holds the admin claim",
			},
		},
		{
			Path:   "/users/make-admin",
			Method: http.MethodPost,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpMakeAdmin,
				Description: "Grant the admin claim to a user",
			},
		},
		{
			Path:   "/users/remove-admin",
			Method: http.MethodPost,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpRemoveAdmin,
				Description: "Revoke the admin claim from a user",
			},
		},
		{
			Path:   "/users/admins-only",
			Method: http.MethodGet,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpAdminsOnly,
				Description: "Greeting reachable only with an admin token",
			},
		},
		{
			Path:   "/health",
			Method: http.MethodGet,
			Access: core.AccessAnonymous,
			Metadata: core.EndpointMetadata{
				OperationID: OpHealth,
				Description: "Report credential store reachability",
			},
		},
	}
}

// EndpointRegistry holds endpoints keyed by METHOD:PATH and rejects
// duplicates.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
	order     []string
}

var _ core.EndpointProvider = (*EndpointRegistry)(nil)

// NewEndpointRegistry creates a registry with the base endpoints registered
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	// base endpoints are unique by construction
	_ = reg.Register(BaseEndpoints())

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// Register adds endpoints. If any conflicts with a registered endpoint or
// with another in the batch, nothing is registered.
func (r *EndpointRegistry) Register(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		key := endpointKey(&endpoints[i])
		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("duplicate endpoint in batch: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		key := endpointKey(&ep)
		r.endpoints[key] = &ep
		r.order = append(r.order, key)
	}

	return nil
}

// Endpoints returns every endpoint in registration order
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.endpoints[key])
	}
	return result
}

// Lookup finds an endpoint by operation id
func (r *EndpointRegistry) Lookup(operationID string) (*core.Endpoint, bool) {
	for _, key := range r.order {
		if ep := r.endpoints[key]; ep.Metadata.OperationID == operationID {
			return ep, true
		}
	}
	return nil, false
}

package services

import (
	"net/http"
	"testing"

	"github.com/lborres/butaca/core"
)

// Requirement: BaseEndpoints describes every route with its method and
// access tier.
func TestBaseEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		wantPath   string
		wantMethod string
		wantOpID   string
		wantAccess core.Access
	}{
		{name: "list users", wantPath: "/users", wantMethod: http.MethodGet, wantOpID: OpListUsers, wantAccess: core.AccessAdmin},
		{name: "register", wantPath: "/users/register", wantMethod: http.MethodPost, wantOpID: OpRegister, wantAccess: core.AccessAnonymous},
		{name: "login", wantPath: "/users/login", wantMethod: http.MethodPost, wantOpID: OpLogin, wantAccess: core.AccessAnonymous},
		{name: "logout", wantPath: "/users/logout", wantMethod: http.MethodPost, wantOpID: OpLogout, wantAccess: core.AccessAnonymous},
		{name: "verify admin", wantPath: "/users/verify-admin", wantMethod: http.MethodGet, wantOpID: OpVerifyAdmin, wantAccess: core.AccessAuthenticated},
		{name: "make admin", wantPath: "/users/make-admin", wantMethod: http.MethodPost, wantOpID: OpMakeAdmin, wantAccess: core.AccessAdmin},
		{name: "remove admin", wantPath: "/users/remove-admin", wantMethod: http.MethodPost, wantOpID: OpRemoveAdmin, wantAccess: core.AccessAdmin},
		{name: "admins only", wantPath: "/users/admins-only", wantMethod: http.MethodGet, wantOpID: OpAdminsOnly, wantAccess: core.AccessAdmin},
		{name: "health", wantPath: "/health", wantMethod: http.MethodGet, wantOpID: OpHealth, wantAccess: core.AccessAnonymous},
	}

	// Arrange
	endpoints := BaseEndpoints()
	if len(endpoints) != len(tests) {
		t.Fatalf("BaseEndpoints should return %d endpoints, got %d", len(tests), len(endpoints))
	}

	byPath := make(map[string]core.Endpoint, len(endpoints))
	for _, ep := range endpoints {
		byPath[ep.Path] = ep
	}

	// Act & Assert
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			ep, found := byPath[test.wantPath]
			if !found {
				t.Fatalf("BaseEndpoints should include %q", test.wantPath)
			}
			if ep.Method != test.wantMethod {
				t.Errorf("endpoint %q should have method %s; got %s", test.wantPath, test.wantMethod, ep.Method)
			}
			if ep.Metadata.OperationID != test.wantOpID {
				t.Errorf("endpoint %q should have OperationID %q; got %q", test.wantPath, test.wantOpID, ep.Metadata.OperationID)
			}
			if ep.Access != test.wantAccess {
				t.Errorf("endpoint %q should be %s; got %s", test.wantPath, test.wantAccess, ep.Access)
			}
			if ep.Metadata.Description == "" {
				t.Errorf("endpoint %q should have a description", test.wantPath)
			}
		})
	}
}

// Requirement: OperationIDs are unique.
func TestBaseEndpoints_OperationIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, ep := range BaseEndpoints() {
		if seen[ep.Metadata.OperationID] {
			t.Errorf("BaseEndpoints contains duplicate OperationID: %q", ep.Metadata.OperationID)
		}
		seen[ep.Metadata.OperationID] = true
	}
}

// Requirement: the registry keeps base endpoints in declaration order.
func TestEndpointRegistry_RegistersBaseEndpoints(t *testing.T) {
	// Arrange & Act
	registry := NewEndpointRegistry()

	// Assert
	got := registry.Endpoints()
	base := BaseEndpoints()
	if len(got) != len(base) {
		t.Fatalf("registry should hold %d endpoints; got %d", len(base), len(got))
	}
	for i := range base {
		if got[i].Path != base[i].Path || got[i].Method != base[i].Method {
			t.Errorf("endpoint %d = %s %s; want %s %s", i, got[i].Method, got[i].Path, base[i].Method, base[i].Path)
		}
	}

	ep, ok := registry.Lookup(OpMakeAdmin)
	if !ok || ep.Path != "/users/make-admin" {
		t.Errorf("Lookup(%q) = %v, %v", OpMakeAdmin, ep, ok)
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Error("Lookup should miss unknown operation ids")
	}
}

// Requirement: the registry rejects duplicate METHOD:PATH combinations and
// registers nothing from a failing batch.
func TestEndpointRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		batch     []core.Endpoint
		wantErr   bool
		wantTotal int
	}{
		{
			name:      "rejects duplicate GET /users",
			batch:     []core.Endpoint{{Path: "/users", Method: http.MethodGet}},
			wantErr:   true,
			wantTotal: 9,
		},
		{
			name:      "allows same path different method",
			batch:     []core.Endpoint{{Path: "/users", Method: http.MethodPost}},
			wantTotal: 10,
		},
		{
			name: "registers several new endpoints",
			batch: []core.Endpoint{
				{Path: "/movies", Method: http.MethodGet},
				{Path: "/movies", Method: http.MethodPost, Access: core.AccessAdmin},
			},
			wantTotal: 11,
		},
		{
			name: "rejects duplicates within the batch",
			batch: []core.Endpoint{
				{Path: "/movies", Method: http.MethodGet},
				{Path: "/movies", Method: http.MethodGet},
			},
			wantErr:   true,
			wantTotal: 9,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			registry := NewEndpointRegistry()

			// Act
			err := registry.Register(test.batch)

			// Assert
			if (err != nil) != test.wantErr {
				t.Errorf("Register should error=%v; got %v", test.wantErr, err)
			}
			if n := len(registry.Endpoints()); n != test.wantTotal {
				t.Errorf("registry should have %d endpoints; got %d", test.wantTotal, n)
			}
		})
	}
}

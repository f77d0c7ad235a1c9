package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/butaca"
	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/logging"
	"github.com/lborres/butaca/services"
)

type Adapter struct {
	app *fiber.App

	auth   *services.AuthService
	tokens core.TokenValidator
	cookie *butaca.CookieConfig
	log    logging.Logger

	// handlers for endpoints registered outside the base set
	extra map[string]fiber.Handler
}

var _ butaca.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{
		app:   app,
		log:   logging.Nop(),
		extra: make(map[string]fiber.Handler),
	}
}

// Handle binds a handler to the OperationID of an endpoint passed in
// butaca.Config.Endpoints. It must be called before butaca.New.
func (a *Adapter) Handle(operationID string, h fiber.Handler) *Adapter {
	a.extra[operationID] = h
	return a
}

func (a *Adapter) RegisterRoutes(b *butaca.Butaca) error {
	a.auth = b.Auth
	a.tokens = b.Tokens
	a.cookie = b.Cookie
	if b.Logger != nil {
		a.log = b.Logger.With("component", "http")
	}

	handlers := map[string]fiber.Handler{
		services.OpListUsers:   a.listUsers,
		services.OpRegister:    a.register,
		services.OpLogin:       a.login,
		services.OpLogout:      a.logout,
		services.OpVerifyAdmin: a.verifyAdmin,
		services.OpMakeAdmin:   a.makeAdmin,
		services.OpRemoveAdmin: a.removeAdmin,
		services.OpAdminsOnly:  a.adminsOnly,
		services.OpHealth:      a.health,
	}
	for id, h := range a.extra {
		if _, taken := handlers[id]; taken {
			return fmt.Errorf("operation %q is already handled", id)
		}
		handlers[id] = h
	}

	api := a.app.Group(b.BasePath)

	for _, ep := range b.Endpoints.Endpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}
		api.Add([]string{ep.Method}, ep.Path, a.guard(ep.Access, h))
	}

	return nil
}

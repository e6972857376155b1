package core

import "context"

// Action is a capability checked by a Policy.
type Action string

const (
	ActionQuoteRead    Action = "quote:read"
	ActionQuoteWrite   Action = "quote:write"
	ActionQuoteConvert Action = "quote:convert"
	ActionOrderRead    Action = "order:read"
	ActionOrderWrite   Action = "order:write"
	ActionInvoiceRead  Action = "invoice:read"
	ActionInvoiceWrite Action = "invoice:write"
	ActionPaymentRead  Action = "payment:read"
	ActionPaymentWrite Action = "payment:write"
	ActionPOSCheckout  Action = "pos:checkout"
	ActionStockRead    Action = "stock:read"
	ActionStockWrite   Action = "stock:write"
	ActionReportRead   Action = "report:read"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID      int
	Role        string
	LocationIDs []int
}

// ID returns the user id for audit columns, or nil for anonymous/system actors.
func (a Actor) ID() *int {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// SystemActor is used by the CLI and maintenance jobs.
func SystemActor() Actor {
	return Actor{Role: RoleAdmin}
}

// Policy is the capability gate consulted before every operation.
type Policy interface {
	CanAccessLocation(actor Actor, locationID int) bool
	CanPerform(actor Actor, action Action) bool
	// LocationScope lists the locations actor may see; all is true when
	// the actor is not restricted.
	LocationScope(actor Actor) (ids []int, all bool)
}

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
	RoleCashier = "cashier"
)

// RolePolicy grants actions per role. Admins see every location; other roles
// only the locations listed on the actor.
type RolePolicy struct {
	grants map[string]map[Action]bool
}

func NewRolePolicy() *RolePolicy {
	all := []Action{
		ActionQuoteRead, ActionQuoteWrite, ActionQuoteConvert,
		ActionOrderRead, ActionOrderWrite,
		ActionInvoiceRead, ActionInvoiceWrite,
		ActionPaymentRead, ActionPaymentWrite,
		ActionPOSCheckout, ActionStockRead, ActionStockWrite, ActionReportRead,
	}
	p := &RolePolicy{grants: map[string]map[Action]bool{}}
	p.grant(RoleAdmin, all...)
	p.grant(RoleManager, all...)
	p.grant(RoleSales,
		ActionQuoteRead, ActionQuoteWrite, ActionQuoteConvert,
		ActionOrderRead, ActionOrderWrite,
		ActionInvoiceRead, ActionInvoiceWrite,
		ActionPaymentRead, ActionPaymentWrite,
		ActionStockRead, ActionReportRead,
	)
	p.grant(RoleCashier,
		ActionPOSCheckout, ActionPaymentWrite, ActionPaymentRead,
		ActionQuoteRead, ActionOrderRead, ActionInvoiceRead, ActionStockRead,
	)
	return p
}

func (p *RolePolicy) grant(role string, actions ...Action) {
	if p.grants[role] == nil {
		p.grants[role] = map[Action]bool{}
	}
	for _, a := range actions {
		p.grants[role][a] = true
	}
}

func (p *RolePolicy) CanPerform(actor Actor, action Action) bool {
	return p.grants[actor.Role][action]
}

func (p *RolePolicy) CanAccessLocation(actor Actor, locationID int) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	for _, id := range actor.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

func (p *RolePolicy) LocationScope(actor Actor) ([]int, bool) {
	if actor.Role == RoleAdmin {
		return nil, true
	}
	return actor.LocationIDs, false
}

type actorKey struct{}

// WithActor stores the actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

package interop

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/core/dao"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"go.uber.org/zap"
)

// Requester is the callback interface implemented by query issuers. Receive
// is invoked by the registry at most once per query ID, within the fulfilling
// transaction and with ic.Caller set to the requester identity.
type Requester interface {
	Receive(ic *Context, id util.Uint256, op operation.Code, status uint32, response []byte) error
}

// Registry is the query registry as it's seen from within a transaction.
// Requesters use it to re-enter the bridge from callbacks.
type Registry interface {
	RegisterQuery(ic *Context, op operation.Code, path, query []any, options string) (util.Uint256, error)
	Fulfill(ic *Context, id util.Uint256, op operation.Code, status uint32, response []byte) error
}

// RequesterResolver returns the callback target attached to the identity.
type RequesterResolver func(h util.Uint160) Requester

// Context represents context in which a single bridge transaction is
// executed.
type Context struct {
	// Caller is the identity the current call originates from.
	Caller util.Uint160
	// DAO is a private storage layer of the transaction.
	DAO *dao.Simple
	// Entropy is an unpredictable value fixed for the whole transaction.
	Entropy       []byte
	Notifications []state.NotificationEvent
	Registry      Registry
	Log           *zap.Logger

	resolve RequesterResolver
}

// NewContext returns new interop context.
func NewContext(caller util.Uint160, d *dao.Simple, entropy []byte, reg Registry, resolve RequesterResolver, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Caller:        caller,
		DAO:           d,
		Entropy:       entropy,
		Notifications: make([]state.NotificationEvent, 0),
		Registry:      reg,
		Log:           log,
		resolve:       resolve,
	}
}

// AddNotification appends an event to the transaction's notification list.
func (ic *Context) AddNotification(ev state.NotificationEvent) {
	ic.Notifications = append(ic.Notifications, ev)
}

// GetRequester returns the callback target of the given identity or nil if
// there is none.
func (ic *Context) GetRequester(h util.Uint160) Requester {
	if ic.resolve == nil {
		return nil
	}
	return ic.resolve(h)
}

// RegisterQuery registers a query on behalf of the current caller.
func (ic *Context) RegisterQuery(op operation.Code, path, query []any, options string) (util.Uint256, error) {
	return ic.Registry.RegisterQuery(ic, op, path, query, options)
}

// Fulfill fulfills a query on behalf of the current caller.
func (ic *Context) Fulfill(id util.Uint256, op operation.Code, status uint32, response []byte) error {
	return ic.Registry.Fulfill(ic, id, op, status, response)
}

package native

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/core/dao"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/interop"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// Mailbox is the requester used for identities that have no callback
// attached. It keeps responses in the storage, so that remote requesters can
// fetch them later.
type Mailbox struct{}

// Receive implements interop.Requester interface.
func (m *Mailbox) Receive(ic *interop.Context, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	return ic.DAO.PutQueryResult(&state.QueryResult{
		ID:         id,
		Operation:  op,
		StatusCode: status,
		Response:   response,
	})
}

// GetQueryResult returns the response stored for the given query.
func (m *Mailbox) GetQueryResult(d *dao.Simple, id util.Uint256) (*state.QueryResult, error) {
	return d.GetQueryResult(id)
}

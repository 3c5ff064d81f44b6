package state

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// MaxResponseSize is the maximum size of a query response accepted by the
// bridge.
const MaxResponseSize = 0x100000

// PendingQuery represents a registered query waiting to be fulfilled.
// Parameters are not stored, they're only carried by the Log event.
type PendingQuery struct {
	ID        util.Uint256   `json:"id"`
	Requester util.Uint160   `json:"requester"`
	Operation operation.Code `json:"operation"`
}

// QueryResult is a query response delivered to the built-in mailbox
// requester.
type QueryResult struct {
	ID         util.Uint256   `json:"id"`
	Operation  operation.Code `json:"operation"`
	StatusCode uint32         `json:"status"`
	Response   []byte         `json:"response"`
}

// EncodeBinary implements the io.Serializable interface.
func (q *PendingQuery) EncodeBinary(w *io.BinWriter) {
	q.ID.EncodeBinary(w)
	q.Requester.EncodeBinary(w)
	w.WriteB(byte(q.Operation))
}

// DecodeBinary implements the io.Serializable interface.
func (q *PendingQuery) DecodeBinary(r *io.BinReader) {
	q.ID.DecodeBinary(r)
	q.Requester.DecodeBinary(r)
	q.Operation = operation.Code(r.ReadB())
}

// EncodeBinary implements the io.Serializable interface.
func (q *QueryResult) EncodeBinary(w *io.BinWriter) {
	q.ID.EncodeBinary(w)
	w.WriteB(byte(q.Operation))
	w.WriteU32LE(q.StatusCode)
	w.WriteVarBytes(q.Response)
}

// DecodeBinary implements the io.Serializable interface.
func (q *QueryResult) DecodeBinary(r *io.BinReader) {
	q.ID.DecodeBinary(r)
	q.Operation = operation.Code(r.ReadB())
	q.StatusCode = r.ReadU32LE()
	q.Response = r.ReadVarBytes(MaxResponseSize)
}

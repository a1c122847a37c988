package rpcsrv

import (
	"net/http"

	"github.com/nspcc-dev/kittychain/pkg/core/native"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
)

// abstractResult is an interface which represents either single JSON-RPC 2.0 response
// or batch JSON-RPC 2.0 response.
type abstractResult interface {
	RunForErrors(f func(jsonErr *kittyrpc.Error))
}

// abstract represents abstract JSON-RPC 2.0 response. It is used as a server-side response
// representation.
type abstract struct {
	kittyrpc.Header
	Error  *kittyrpc.Error `json:"error,omitempty"`
	Result any             `json:"result,omitempty"`
}

// RunForErrors implements abstractResult interface.
func (a abstract) RunForErrors(f func(jsonErr *kittyrpc.Error)) {
	if a.Error != nil {
		f(a.Error)
	}
}

// abstractBatch represents abstract JSON-RPC 2.0 batch-response.
type abstractBatch []abstract

// RunForErrors implements abstractResult interface.
func (ab abstractBatch) RunForErrors(f func(jsonErr *kittyrpc.Error)) {
	for _, a := range ab {
		a.RunForErrors(f)
	}
}

func getHTTPCodeForError(respErr *kittyrpc.Error) int {
	switch respErr.Code {
	case kittyrpc.BadRequestCode:
		return http.StatusBadRequest
	case kittyrpc.MethodNotFoundCode:
		return http.StatusMethodNotAllowed
	case kittyrpc.InternalServerErrorCode:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

// ledgerError converts a failed ledger call into a JSON-RPC error keeping
// the original error text as data.
func ledgerError(err error) *kittyrpc.Error {
	var e *kittyrpc.Error
	switch native.Kind(err) {
	case native.NotFound:
		e = kittyrpc.ErrUnknownKitty
	case native.Authorization:
		e = kittyrpc.ErrNotOwner
	case native.Capacity:
		e = kittyrpc.ErrCapacity
	case native.Policy:
		e = kittyrpc.ErrNotAllowed
	case native.Duplicate:
		e = kittyrpc.ErrDuplicate
	case native.External:
		e = kittyrpc.ErrPayment
	default:
		return kittyrpc.NewInternalServerError(err.Error())
	}
	return kittyrpc.WrapErrorWithData(e, err.Error())
}

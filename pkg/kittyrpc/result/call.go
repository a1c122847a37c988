package result

import (
	"encoding/json"

	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
)

// Call is the result of a state-changing call. FAULTed calls carry the
// ledger error along with the execution result, so that the caller learns
// both the reason and the call position in the execution log.
type Call struct {
	state.AppExecResult
	Error *kittyrpc.Error
}

type callErrorAux struct {
	Error *kittyrpc.Error `json:"error,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (c *Call) MarshalJSON() ([]byte, error) {
	data, err := c.AppExecResult.MarshalJSON()
	if err != nil || c.Error == nil {
		return data, err
	}
	e, err := json.Marshal(c.Error)
	if err != nil {
		return nil, err
	}
	data = append(data[:len(data)-1], `,"error":`...)
	data = append(data, e...)
	return append(data, '}'), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (c *Call) UnmarshalJSON(data []byte) error {
	if err := c.AppExecResult.UnmarshalJSON(data); err != nil {
		return err
	}
	aux := new(callErrorAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	c.Error = aux.Error
	return nil
}

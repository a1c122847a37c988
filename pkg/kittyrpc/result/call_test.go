package result

import (
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestCallJSON(t *testing.T) {
	t.Run("halt", func(t *testing.T) {
		c := &Call{AppExecResult: state.AppExecResult{
			Block:  1,
			Index:  2,
			Method: "createkitty",
			Sender: util.Uint160{1},
			State:  state.Halt,
		}}
		data, err := json.Marshal(c)
		require.NoError(t, err)
		require.NotContains(t, string(data), `"error"`)

		// Plain execution results decode from call results.
		aer := new(state.AppExecResult)
		require.NoError(t, json.Unmarshal(data, aer))
		require.Equal(t, &c.AppExecResult, aer)

		actual := new(Call)
		require.NoError(t, json.Unmarshal(data, actual))
		require.Equal(t, c, actual)
	})
	t.Run("fault", func(t *testing.T) {
		c := &Call{
			AppExecResult: state.AppExecResult{
				Block:          3,
				Index:          0,
				Method:         "transferkitty",
				Sender:         util.Uint160{2},
				State:          state.Fault,
				FaultException: "not the owner",
			},
			Error: kittyrpc.WrapErrorWithData(kittyrpc.ErrNotOwner, "not the owner"),
		}
		data, err := json.Marshal(c)
		require.NoError(t, err)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))
		require.JSONEq(t, `{"code":-101,"message":"Not owner","data":"not the owner"}`, string(raw["error"]))
		require.JSONEq(t, `"FAULT"`, string(raw["state"]))

		actual := new(Call)
		require.NoError(t, json.Unmarshal(data, actual))
		require.Equal(t, c, actual)
		require.ErrorIs(t, actual.Error, kittyrpc.ErrNotOwner)
	})
}

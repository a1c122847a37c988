package rpcclient

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc/result"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// GetApplicationLog returns the results of all calls of the block with the
// given index.
func (c *Client) GetApplicationLog(index uint32) (state.ExecLog, error) {
	var (
		params = []any{index}
		resp   state.ExecLog
	)
	if err := c.performRequest("getapplicationlog", params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBestBlockHash returns the hash of the tallest sealed block.
func (c *Client) GetBestBlockHash() (util.Uint256, error) {
	var resp = util.Uint256{}
	if err := c.performRequest("getbestblockhash", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetBlockCount returns the number of sealed blocks including genesis.
func (c *Client) GetBlockCount() (uint32, error) {
	var resp uint32
	if err := c.performRequest("getblockcount", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetBlock returns a sealed block by its index.
func (c *Client) GetBlock(index uint32) (*state.Block, error) {
	var (
		params = []any{index}
		resp   = new(state.Block)
	)
	if err := c.performRequest("getblock", params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetVersion returns the version information about the queried node.
func (c *Client) GetVersion() (*result.Version, error) {
	var resp = new(result.Version)
	if err := c.performRequest("getversion", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ValidateAddress verifies that the address is a correct kittychain address.
// Consider using [address] package instead to do it locally.
func (c *Client) ValidateAddress(addr string) error {
	var (
		params = []any{addr}
		resp   bool
	)
	if err := c.performRequest("validateaddress", params, &resp); err != nil {
		return err
	}
	if !resp {
		return fmt.Errorf("validateaddress returned false for %q", addr)
	}
	return nil
}

// GetKitty returns the kitty with the given DNA.
func (c *Client) GetKitty(id state.DNA) (*state.Kitty, error) {
	var (
		params = []any{id}
		resp   = new(state.Kitty)
	)
	if err := c.performRequest("getkitty", params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetKitties returns a page of kitties in DNA order starting from the given
// DNA (inclusive, nil starts from the first kitty). Non-positive limit uses
// the node's maximum page size.
func (c *Client) GetKitties(start *state.DNA, limit int) (*result.KittiesPage, error) {
	var (
		params = []any{start}
		resp   = new(result.KittiesPage)
	)
	if limit > 0 {
		params = append(params, limit)
	}
	if err := c.performRequest("getkitties", params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// TraverseKitties walks through all kitties page by page calling f for each
// of them until it returns false.
func (c *Client) TraverseKitties(limit int, f func(*state.Kitty) bool) error {
	var start *state.DNA
	for {
		page, err := c.GetKitties(start, limit)
		if err != nil {
			return err
		}
		for _, k := range page.Kitties {
			if !f(k) {
				return nil
			}
		}
		if page.Next == nil {
			return nil
		}
		start = page.Next
	}
}

// GetKittiesOf returns DNAs of the kitties owned by the account.
func (c *Client) GetKittiesOf(acc util.Uint160) ([]state.DNA, error) {
	var (
		params = []any{address.Uint160ToString(acc)}
		resp   = new(result.KittiesOf)
	)
	if err := c.performRequest("getkittiesof", params, resp); err != nil {
		return nil, err
	}
	return resp.Kitties, nil
}

// GetKittyCount returns the number of kitties ever created.
func (c *Client) GetKittyCount() (uint64, error) {
	var resp uint64
	if err := c.performRequest("getkittycount", nil, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

// GetBalance returns the free balance of the account.
func (c *Client) GetBalance(acc util.Uint160) (*uint256.Int, error) {
	var (
		params = []any{address.Uint160ToString(acc)}
		resp   = new(result.Balance)
	)
	if err := c.performRequest("getbalance", params, resp); err != nil {
		return nil, err
	}
	return state.ParseAmount(resp.Amount)
}

// GetTotalIssuance returns the sum of all balances.
func (c *Client) GetTotalIssuance() (*uint256.Int, error) {
	var resp string
	if err := c.performRequest("gettotalissuance", nil, &resp); err != nil {
		return nil, err
	}
	return state.ParseAmount(resp)
}

// CreateKitty creates a kitty owned by the sender.
func (c *Client) CreateKitty(sender util.Uint160) (*state.AppExecResult, error) {
	return c.call("createkitty", sender)
}

// BreedKitty breeds a new kitty from two parents owned by the sender.
func (c *Client) BreedKitty(sender util.Uint160, p1, p2 state.DNA) (*state.AppExecResult, error) {
	return c.call("breedkitty", sender, p1, p2)
}

// TransferKitty moves a kitty from the sender to another account.
func (c *Client) TransferKitty(sender, to util.Uint160, id state.DNA) (*state.AppExecResult, error) {
	return c.call("transferkitty", sender, address.Uint160ToString(to), id)
}

// BuyKitty buys a kitty on sale paying at most the given limit. nil limit
// only allows buying kitties priced at zero.
func (c *Client) BuyKitty(sender util.Uint160, id state.DNA, limit *uint256.Int) (*state.AppExecResult, error) {
	return c.call("buykitty", sender, id, amountParam(limit))
}

// SetPrice puts a kitty on sale, nil price takes it off sale.
func (c *Client) SetPrice(sender util.Uint160, id state.DNA, price *uint256.Int) (*state.AppExecResult, error) {
	return c.call("setprice", sender, id, amountParam(price))
}

// TransferFunds transfers an amount from the sender to another account.
func (c *Client) TransferFunds(sender, to util.Uint160, amount *uint256.Int) (*state.AppExecResult, error) {
	if amount == nil {
		return nil, fmt.Errorf("nil amount")
	}
	return c.call("transferfunds", sender, address.Uint160ToString(to), amountParam(amount))
}

// call performs a state-changing call on behalf of the sender. FAULTed calls
// are returned with both their execution result and the ledger error.
func (c *Client) call(method string, sender util.Uint160, args ...any) (*state.AppExecResult, error) {
	var (
		params = append([]any{address.Uint160ToString(sender)}, args...)
		resp   = new(result.Call)
	)
	if err := c.performRequest(method, params, resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &resp.AppExecResult, resp.Error
	}
	if resp.State != state.Halt {
		return &resp.AppExecResult, errors.New(resp.FaultException)
	}
	return &resp.AppExecResult, nil
}

// amountParam encodes an optional amount as a decimal string.
func amountParam(a *uint256.Int) any {
	if a == nil {
		return nil
	}
	return a.ToBig().String()
}

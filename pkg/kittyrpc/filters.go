package kittyrpc

import (
	"errors"

	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

type (
	// BlockFilter is a wrapper structure for the block event filter. It
	// allows to filter blocks by index (allowing blocks since/till the
	// specified index inclusively). nil value treated as missing filter.
	BlockFilter struct {
		Since *uint32 `json:"since,omitempty"`
		Till  *uint32 `json:"till,omitempty"`
	}
	// NotificationFilter is a wrapper structure representing a filter used
	// for kitty and balance events. Events can be filtered by name, by
	// kitty and by account taking part in them (owner, sender, recipient,
	// seller or buyer). nil value treated as missing filter.
	NotificationFilter struct {
		Name    *string       `json:"name,omitempty"`
		Kitty   *state.DNA    `json:"kitty,omitempty"`
		Account *util.Uint160 `json:"account,omitempty"`
	}
	// ExecutionFilter is a wrapper structure used for call execution events.
	// It allows to choose calls by method name and/or by sender. nil value
	// treated as missing filter.
	ExecutionFilter struct {
		Method *string       `json:"method,omitempty"`
		Sender *util.Uint160 `json:"sender,omitempty"`
	}
)

// Copy creates a deep copy of the BlockFilter. It handles nil BlockFilter
// correctly.
func (f *BlockFilter) Copy() *BlockFilter {
	if f == nil {
		return nil
	}
	var res = new(BlockFilter)
	if f.Since != nil {
		res.Since = new(uint32)
		*res.Since = *f.Since
	}
	if f.Till != nil {
		res.Till = new(uint32)
		*res.Till = *f.Till
	}
	return res
}

// IsValid implements SubscriptionFilter interface.
func (f BlockFilter) IsValid() error {
	if f.Since != nil && f.Till != nil && *f.Since > *f.Till {
		return errors.New("since is greater than till")
	}
	return nil
}

// Copy creates a deep copy of the NotificationFilter. It handles nil
// NotificationFilter correctly.
func (f *NotificationFilter) Copy() *NotificationFilter {
	if f == nil {
		return nil
	}
	var res = new(NotificationFilter)
	if f.Name != nil {
		res.Name = new(string)
		*res.Name = *f.Name
	}
	if f.Kitty != nil {
		res.Kitty = new(state.DNA)
		*res.Kitty = *f.Kitty
	}
	if f.Account != nil {
		res.Account = new(util.Uint160)
		*res.Account = *f.Account
	}
	return res
}

// IsValid implements SubscriptionFilter interface.
func (f NotificationFilter) IsValid() error {
	if f.Name != nil {
		if _, err := state.EventTypeFromString(*f.Name); err != nil {
			return err
		}
	}
	return nil
}

// Copy creates a deep copy of the ExecutionFilter. It handles nil
// ExecutionFilter correctly.
func (f *ExecutionFilter) Copy() *ExecutionFilter {
	if f == nil {
		return nil
	}
	var res = new(ExecutionFilter)
	if f.Method != nil {
		res.Method = new(string)
		*res.Method = *f.Method
	}
	if f.Sender != nil {
		res.Sender = new(util.Uint160)
		*res.Sender = *f.Sender
	}
	return res
}

// IsValid implements SubscriptionFilter interface.
func (f ExecutionFilter) IsValid() error {
	if f.Method != nil && *f.Method == "" {
		return errors.New("empty method")
	}
	return nil
}

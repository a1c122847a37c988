/*
Package rpcevent implements matching of chain events against subscription
filters.
*/
package rpcevent

import (
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

type (
	// Comparator is an interface required from notification event filter to
	// be able to filter notifications.
	Comparator interface {
		EventID() kittyrpc.EventID
		Filter() any
	}
	// Container is an interface required from notification event to be able
	// to pass filter.
	Container interface {
		EventID() kittyrpc.EventID
		EventPayload() any
	}
)

// Matches filters our given Container against Comparator filter.
func Matches(f Comparator, r Container) bool {
	expectedEvent := f.EventID()
	filter := f.Filter()
	if r.EventID() != expectedEvent {
		return false
	}
	if filter == nil {
		return true
	}
	switch f.EventID() {
	case kittyrpc.BlockEventID:
		filt := filter.(kittyrpc.BlockFilter)
		b := r.EventPayload().(*state.Block)
		sinceOk := filt.Since == nil || *filt.Since <= b.Index
		tillOk := filt.Till == nil || b.Index <= *filt.Till
		return sinceOk && tillOk
	case kittyrpc.NotificationEventID:
		filt := filter.(kittyrpc.NotificationFilter)
		ne := r.EventPayload().(*state.NotificationEvent)
		nameOk := filt.Name == nil || ne.Event.Type().String() == *filt.Name
		kittyOk := true
		if filt.Kitty != nil {
			dna, ok := kittyOf(ne.Event)
			kittyOk = ok && dna == *filt.Kitty
		}
		accountOk := true
		if filt.Account != nil {
			accountOk = false
			for _, acc := range accountsOf(ne.Event) {
				if acc.Equals(*filt.Account) {
					accountOk = true
					break
				}
			}
		}
		return nameOk && kittyOk && accountOk
	case kittyrpc.ExecutionEventID:
		filt := filter.(kittyrpc.ExecutionFilter)
		aer := r.EventPayload().(*state.AppExecResult)
		methodOk := filt.Method == nil || aer.Method == *filt.Method
		senderOk := filt.Sender == nil || aer.Sender.Equals(*filt.Sender)
		return methodOk && senderOk
	}
	return false
}

// kittyOf returns the kitty the event is about if any.
func kittyOf(e state.Event) (state.DNA, bool) {
	switch e := e.(type) {
	case *state.KittyCreated:
		return e.Kitty, true
	case *state.PriceSet:
		return e.Kitty, true
	case *state.KittyTransferred:
		return e.Kitty, true
	case *state.KittySold:
		return e.Kitty, true
	}
	return state.DNA{}, false
}

// accountsOf returns all accounts taking part in the event.
func accountsOf(e state.Event) []util.Uint160 {
	switch e := e.(type) {
	case *state.KittyCreated:
		return []util.Uint160{e.Owner}
	case *state.KittyTransferred:
		return []util.Uint160{e.From, e.To}
	case *state.KittySold:
		return []util.Uint160{e.Seller, e.Buyer}
	case *state.FundsTransferred:
		return []util.Uint160{e.From, e.To}
	case *state.DustLost:
		return []util.Uint160{e.Account}
	case *state.Endowed:
		return []util.Uint160{e.Account}
	}
	return nil
}

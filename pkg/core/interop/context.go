package interop

import (
	"github.com/nspcc-dev/kittychain/pkg/core/dao"
	"github.com/nspcc-dev/kittychain/pkg/core/random"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"go.uber.org/zap"
)

// Context represents context in which native contract methods are executed.
// Every call gets its own Context with a private DAO layer.
type Context struct {
	DAO *dao.Simple
	// Sender is the authenticated caller.
	Sender util.Uint160
	// Height is the index of the block being built.
	Height uint32
	// Index is the position of the call inside the block.
	Index         uint32
	Random        random.Source
	Notifications []state.Event
	Log           *zap.Logger
}

// NewContext returns new interop context.
func NewContext(d *dao.Simple, sender util.Uint160, height, index uint32, rnd random.Source, log *zap.Logger) *Context {
	return &Context{
		DAO:           d,
		Sender:        sender,
		Height:        height,
		Index:         index,
		Random:        rnd,
		Notifications: make([]state.Event, 0),
		Log:           log,
	}
}

// AddNotification appends an event to the list of call notifications.
func (ic *Context) AddNotification(e state.Event) {
	ic.Notifications = append(ic.Notifications, e)
}

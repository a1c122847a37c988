package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nspcc-dev/kittychain/pkg/io"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// MaxEventsPerCall limits the number of events decoded for a single call.
const MaxEventsPerCall = 16

// ExecState is the outcome of a call.
type ExecState byte

// Possible call outcomes.
const (
	// Halt means the call succeeded and its changes were applied.
	Halt ExecState = iota
	// Fault means the call failed and left no trace in the ledger other
	// than its AppExecResult.
	Fault
)

// NotificationEvent is an event together with the position of the call that
// emitted it.
type NotificationEvent struct {
	Block uint32
	Index uint32
	Event Event
}

// AppExecResult is the result of a single call.
type AppExecResult struct {
	// Block is the index of the block the call belongs to.
	Block uint32
	// Index is the position of the call inside the block.
	Index          uint32
	Method         string
	Sender         util.Uint160
	State          ExecState
	FaultException string
	Events         []Event
}

// ExecLog is the list of results of all calls of a block in order.
type ExecLog []AppExecResult

// String implements the fmt.Stringer interface.
func (s ExecState) String() string {
	switch s {
	case Halt:
		return "HALT"
	case Fault:
		return "FAULT"
	default:
		return "NONE"
	}
}

// ExecStateFromString converts a string into ExecState.
func ExecStateFromString(s string) (ExecState, error) {
	switch s {
	case "HALT":
		return Halt, nil
	case "FAULT":
		return Fault, nil
	default:
		return 0, fmt.Errorf("unknown state %q", s)
	}
}

// EncodeEvent writes a tagged event.
func EncodeEvent(w *io.BinWriter, e Event) {
	w.WriteB(byte(e.Type()))
	e.EncodeBinary(w)
}

// DecodeEvent reads an event written by EncodeEvent.
func DecodeEvent(r *io.BinReader) Event {
	t := EventType(r.ReadB())
	if r.Err != nil {
		return nil
	}
	e, err := NewEvent(t)
	if err != nil {
		r.Err = err
		return nil
	}
	e.DecodeBinary(r)
	return e
}

func encodeEvents(w *io.BinWriter, evs []Event) {
	w.WriteVarUint(uint64(len(evs)))
	for _, e := range evs {
		EncodeEvent(w, e)
	}
}

func decodeEvents(r *io.BinReader) []Event {
	n := r.ReadVarUint()
	if n > MaxEventsPerCall && r.Err == nil {
		r.Err = errors.New("too many events")
	}
	if r.Err != nil || n == 0 {
		return nil
	}
	evs := make([]Event, n)
	for i := range evs {
		evs[i] = DecodeEvent(r)
		if r.Err != nil {
			return nil
		}
	}
	return evs
}

// EncodeBinary implements the io.Serializable interface.
func (ne *NotificationEvent) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(ne.Block)
	w.WriteU32LE(ne.Index)
	EncodeEvent(w, ne.Event)
}

// DecodeBinary implements the io.Serializable interface.
func (ne *NotificationEvent) DecodeBinary(r *io.BinReader) {
	ne.Block = r.ReadU32LE()
	ne.Index = r.ReadU32LE()
	ne.Event = DecodeEvent(r)
}

// EncodeBinary implements the io.Serializable interface.
func (aer *AppExecResult) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(aer.Block)
	w.WriteU32LE(aer.Index)
	w.WriteString(aer.Method)
	aer.Sender.EncodeBinary(w)
	w.WriteB(byte(aer.State))
	w.WriteString(aer.FaultException)
	encodeEvents(w, aer.Events)
}

// DecodeBinary implements the io.Serializable interface.
func (aer *AppExecResult) DecodeBinary(r *io.BinReader) {
	aer.Block = r.ReadU32LE()
	aer.Index = r.ReadU32LE()
	aer.Method = r.ReadString(64)
	aer.Sender.DecodeBinary(r)
	aer.State = ExecState(r.ReadB())
	aer.FaultException = r.ReadString()
	aer.Events = decodeEvents(r)
}

// EncodeBinary implements the io.Serializable interface.
func (l *ExecLog) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(*l)))
	for i := range *l {
		(*l)[i].EncodeBinary(w)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (l *ExecLog) DecodeBinary(r *io.BinReader) {
	*l = io.ReadArray[AppExecResult](r)
}

// eventAux is an auxiliary struct for Event JSON marshalling.
type eventAux struct {
	Name  string          `json:"name"`
	State json.RawMessage `json:"state"`
}

func marshalEvent(e Event) (*eventAux, error) {
	st, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &eventAux{Name: e.Type().String(), State: st}, nil
}

func (aux *eventAux) event() (Event, error) {
	t, err := EventTypeFromString(aux.Name)
	if err != nil {
		return nil, err
	}
	e, err := NewEvent(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(aux.State, e); err != nil {
		return nil, fmt.Errorf("bad %s event: %w", aux.Name, err)
	}
	return e, nil
}

// notificationEventAux is an auxiliary struct for NotificationEvent JSON marshalling.
type notificationEventAux struct {
	Block uint32 `json:"block"`
	Index uint32 `json:"index"`
	eventAux
}

// MarshalJSON implements the json.Marshaler interface.
func (ne NotificationEvent) MarshalJSON() ([]byte, error) {
	ev, err := marshalEvent(ne.Event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&notificationEventAux{
		Block:    ne.Block,
		Index:    ne.Index,
		eventAux: *ev,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (ne *NotificationEvent) UnmarshalJSON(data []byte) error {
	aux := new(notificationEventAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e, err := aux.event()
	if err != nil {
		return err
	}
	ne.Block = aux.Block
	ne.Index = aux.Index
	ne.Event = e
	return nil
}

// appExecResultAux is an auxiliary struct for JSON marshalling.
type appExecResultAux struct {
	Block          uint32       `json:"block"`
	Index          uint32       `json:"index"`
	Method         string       `json:"method"`
	Sender         util.Uint160 `json:"sender"`
	State          string       `json:"state"`
	FaultException *string      `json:"exception"`
	Events         []eventAux   `json:"notifications"`
}

// MarshalJSON implements the json.Marshaler interface.
func (aer *AppExecResult) MarshalJSON() ([]byte, error) {
	var exception *string
	if aer.FaultException != "" {
		exception = &aer.FaultException
	}
	evs := make([]eventAux, 0, len(aer.Events))
	for _, e := range aer.Events {
		ev, err := marshalEvent(e)
		if err != nil {
			return nil, err
		}
		evs = append(evs, *ev)
	}
	return json.Marshal(&appExecResultAux{
		Block:          aer.Block,
		Index:          aer.Index,
		Method:         aer.Method,
		Sender:         aer.Sender,
		State:          aer.State.String(),
		FaultException: exception,
		Events:         evs,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (aer *AppExecResult) UnmarshalJSON(data []byte) error {
	aux := new(appExecResultAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	st, err := ExecStateFromString(aux.State)
	if err != nil {
		return err
	}
	var evs []Event
	for i := range aux.Events {
		e, err := aux.Events[i].event()
		if err != nil {
			return err
		}
		evs = append(evs, e)
	}
	aer.Block = aux.Block
	aer.Index = aux.Index
	aer.Method = aux.Method
	aer.Sender = aux.Sender
	aer.State = st
	aer.FaultException = ""
	if aux.FaultException != nil {
		aer.FaultException = *aux.FaultException
	}
	aer.Events = evs
	return nil
}

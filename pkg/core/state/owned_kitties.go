package state

import (
	"github.com/nspcc-dev/kittychain/pkg/io"
)

// OwnedKitties is a bounded per-account collection of kitties. Order is not
// meaningful, removal moves the last element into the freed slot.
type OwnedKitties []DNA

// Index returns the position of id in the collection or -1.
func (o OwnedKitties) Index(id DNA) int {
	for i := range o {
		if o[i] == id {
			return i
		}
	}
	return -1
}

// Contains checks whether id is in the collection.
func (o OwnedKitties) Contains(id DNA) bool {
	return o.Index(id) >= 0
}

// TryPush appends id if the collection has less than max elements.
func (o *OwnedKitties) TryPush(id DNA, max int) bool {
	if len(*o) >= max {
		return false
	}
	*o = append(*o, id)
	return true
}

// SwapRemove removes id by replacing it with the last element. It returns
// false if id is not in the collection.
func (o *OwnedKitties) SwapRemove(id DNA) bool {
	i := o.Index(id)
	if i < 0 {
		return false
	}
	last := len(*o) - 1
	(*o)[i] = (*o)[last]
	*o = (*o)[:last]
	return true
}

// EncodeBinary implements the io.Serializable interface.
func (o *OwnedKitties) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(*o)))
	for i := range *o {
		(*o)[i].EncodeBinary(w)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (o *OwnedKitties) DecodeBinary(r *io.BinReader) {
	*o = io.ReadArray[DNA](r)
}

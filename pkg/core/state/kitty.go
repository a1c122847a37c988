package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/io"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"gopkg.in/yaml.v3"
)

// DNASize is the size of kitty DNA in bytes.
const DNASize = 16

// DNA is a 128-bit kitty identifier. It's unique for the whole lifetime of
// the ledger and also carries genetic material used by breeding.
type DNA [DNASize]byte

// Gender is a binary kitty trait.
type Gender byte

// Possible genders.
const (
	Male Gender = iota
	Female
)

// Kitty is a kitty record, the only asset tracked by the ledger.
type Kitty struct {
	DNA    DNA
	Gender Gender
	Owner  util.Uint160
	// Price is the asking price, nil when not for sale.
	Price *uint256.Int
}

// DNAFromString decodes hex-encoded DNA, an optional 0x prefix is allowed.
func DNAFromString(s string) (DNA, error) {
	var d DNA
	s = strings.TrimPrefix(s, "0x")
	if len(s) != DNASize*2 {
		return d, fmt.Errorf("expected string size of %d got %d", DNASize*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	copy(d[:], b)
	return d, nil
}

// DNAFromBytes converts a byte slice into DNA.
func DNAFromBytes(b []byte) (DNA, error) {
	var d DNA
	if len(b) != DNASize {
		return d, fmt.Errorf("expected byte size of %d got %d", DNASize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// String implements the fmt.Stringer interface.
func (d DNA) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (d DNA) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *DNA) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := DNAFromString(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// EncodeBinary implements the io.Serializable interface.
func (d *DNA) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(d[:])
}

// DecodeBinary implements the io.Serializable interface.
func (d *DNA) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(d[:])
}

// GenderFromString parses gender name.
func GenderFromString(s string) (Gender, error) {
	switch strings.ToLower(s) {
	case "male":
		return Male, nil
	case "female":
		return Female, nil
	default:
		return 0, fmt.Errorf("unknown gender %q", s)
	}
}

// String implements the fmt.Stringer interface.
func (g Gender) String() string {
	switch g {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return fmt.Sprintf("unknown(%d)", byte(g))
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (g Gender) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := GenderFromString(s)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (g *Gender) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := GenderFromString(s)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// EncodeBinary implements the io.Serializable interface.
func (k *Kitty) EncodeBinary(w *io.BinWriter) {
	k.DNA.EncodeBinary(w)
	w.WriteB(byte(k.Gender))
	k.Owner.EncodeBinary(w)
	w.WriteBool(k.Price != nil)
	if k.Price != nil {
		EncodeAmount(w, k.Price)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (k *Kitty) DecodeBinary(r *io.BinReader) {
	k.DNA.DecodeBinary(r)
	k.Gender = Gender(r.ReadB())
	if k.Gender > Female && r.Err == nil {
		r.Err = errors.New("invalid gender")
		return
	}
	k.Owner.DecodeBinary(r)
	k.Price = nil
	if r.ReadBool() {
		k.Price = DecodeAmount(r)
	}
}

type kittyAux struct {
	DNA    DNA          `json:"dna"`
	Gender Gender       `json:"gender"`
	Owner  util.Uint160 `json:"owner"`
	Price  *jsonAmount  `json:"price"`
}

// MarshalJSON implements the json.Marshaler interface.
func (k *Kitty) MarshalJSON() ([]byte, error) {
	return json.Marshal(&kittyAux{
		DNA:    k.DNA,
		Gender: k.Gender,
		Owner:  k.Owner,
		Price:  (*jsonAmount)(k.Price),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (k *Kitty) UnmarshalJSON(data []byte) error {
	aux := new(kittyAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	k.DNA = aux.DNA
	k.Gender = aux.Gender
	k.Owner = aux.Owner
	k.Price = (*uint256.Int)(aux.Price)
	return nil
}

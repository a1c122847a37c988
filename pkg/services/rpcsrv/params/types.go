package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
)

const maxBatchSize = 100

type (
	// Request contains standard JSON-RPC 2.0 request and batch of
	// requests: http://www.jsonrpc.org/specification.
	// It's used in server to represent incoming queries.
	Request struct {
		In    *In
		Batch Batch
	}

	// In represents a standard JSON-RPC 2.0
	// request: http://www.jsonrpc.org/specification#request_object.
	In struct {
		JSONRPC   string          `json:"jsonrpc"`
		Method    string          `json:"method"`
		RawParams []Param         `json:"params,omitempty"`
		RawID     json.RawMessage `json:"id,omitempty"`
	}

	// Batch represents a standard JSON-RPC 2.0
	// batch: https://www.jsonrpc.org/specification#batch.
	Batch []In
)

// MarshalJSON implements json.Marshaler interface.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.In != nil {
		return json.Marshal(r.In)
	}
	return json.Marshal(r.Batch)
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (r *Request) UnmarshalJSON(data []byte) error {
	var in = new(In)
	if err := json.Unmarshal(data, in); err == nil {
		r.In = in
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	t, err := decoder.Token()
	if err != nil {
		return err
	}
	delim, ok := t.(json.Delim)
	if !ok || delim != '[' {
		return errors.New("`[` expected")
	}
	var batch Batch
	for decoder.More() {
		if len(batch) >= maxBatchSize {
			return fmt.Errorf("the number of requests in batch shouldn't exceed %d", maxBatchSize)
		}
		in = new(In)
		if err := decoder.Decode(in); err != nil {
			return err
		}
		batch = append(batch, *in)
	}
	if len(batch) == 0 {
		return errors.New("empty request")
	}
	r.Batch = batch
	return nil
}

// DecodeData decodes the given reader into the the request
// struct.
func (r *Request) DecodeData(data io.ReadCloser) error {
	defer data.Close()

	rawData := json.RawMessage{}
	err := json.NewDecoder(data).Decode(&rawData)
	if err != nil {
		return fmt.Errorf("error parsing JSON payload: %w", err)
	}

	err = r.UnmarshalJSON(rawData)
	if err != nil {
		return fmt.Errorf("error parsing JSON payload: %w", err)
	}

	return nil
}

// NewRequest creates a new Request struct.
func NewRequest() *Request {
	return &Request{}
}

// NewIn creates a new In struct.
func NewIn() *In {
	return &In{
		JSONRPC: kittyrpc.JSONRPCVersion,
	}
}

package jobsv1

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype carrying this API's JSON frames.
const CodecName = "json"

// jsonCodec marshals API messages as JSON. The service is consumed only by
// first-party clients, so the contract is maintained here by hand instead of
// through generated protobuf bindings.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption forces the JSON content-subtype on outgoing calls.
func CallOption() grpc.CallOption { return grpc.CallContentSubtype(CodecName) }

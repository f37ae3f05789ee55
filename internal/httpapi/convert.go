package httpapi

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

// toProtoValue converts any JSON-encodable response into a protobuf Value
// whose shape matches the JSON body field for field.
func toProtoValue(v any) (*structpb.Value, error) {
	b, err := jsonpkg.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := jsonpkg.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	pv, err := structpb.NewValue(generic)
	if err != nil {
		return nil, fmt.Errorf("structpb: %w", err)
	}
	return pv, nil
}

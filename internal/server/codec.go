package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/schema"
)

func getString(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func getBool(in *structpb.Struct, key string) bool {
	return in.GetFields()[key].GetBoolValue()
}

// getInt reads a non-negative whole number; absent keys give 0.
func getInt(in *structpb.Struct, key string) (int, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, common.InvalidArgumentErrorf("%s must be a non-negative integer", key)
	}
	return int(n.NumberValue), nil
}

func getContent(in *structpb.Struct, maxBytes int) ([]byte, error) {
	raw := getString(in, "content_base64")
	if raw == "" {
		return nil, common.InvalidArgumentError("content_base64 is required")
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("content_base64: %v", err)
	}
	if maxBytes > 0 && len(b) > maxBytes {
		return nil, common.InvalidArgumentErrorf("document is %d bytes, limit %d", len(b), maxBytes)
	}
	return b, nil
}

// getFields reads an object of string values; null clears a field.
func getFields(in *structpb.Struct, key string) (map[string]string, error) {
	obj := in.GetFields()[key].GetStructValue()
	if obj == nil || len(obj.GetFields()) == 0 {
		return nil, common.InvalidArgumentErrorf("%s must be a non-empty object", key)
	}
	out := make(map[string]string, len(obj.GetFields()))
	for name, v := range obj.GetFields() {
		switch k := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			out[name] = k.StringValue
		case *structpb.Value_NullValue:
			out[name] = ""
		default:
			return nil, common.InvalidArgumentErrorf("%s.%s must be a string", key, name)
		}
	}
	return out, nil
}

// outputStruct projects rec onto the output shape and checks it against the output schema.
func outputStruct(rec *entity.ExtractionRecord) (*structpb.Struct, error) {
	b, err := json.Marshal(rec.Output())
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	s, err := schema.OutputValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateJSON(s, b); err != nil {
		return nil, fmt.Errorf("output of %s: %w", rec.DocumentID, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	return structpb.NewStruct(m)
}

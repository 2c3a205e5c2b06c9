package api

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/condfield/internal/types"
)

// requestFields reads typed values out of a Struct request. Missing keys
// read as zero values.
type requestFields map[string]*structpb.Value

func fieldsOf(req *structpb.Struct) requestFields {
	return requestFields(req.GetFields())
}

func (r requestFields) str(key string) string {
	return r[key].GetStringValue()
}

func (r requestFields) boolean(key string) bool {
	return r[key].GetBoolValue()
}

// fieldID reads "fieldid", accepting only whole positive numbers.
func (r requestFields) fieldID() (types.FieldID, bool) {
	v, ok := r["fieldid"]
	if !ok {
		return 0, false
	}
	n := v.GetNumberValue()
	if n <= 0 || n != math.Trunc(n) || n > math.MaxInt64 {
		return 0, false
	}
	return types.FieldID(n), true
}

// strings reads a list of strings; non-string entries are skipped.
func (r requestFields) strings(key string) []string {
	var out []string
	for _, v := range r[key].GetListValue().GetValues() {
		if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			out = append(out, s.StringValue)
		}
	}
	return out
}

// rawJSON reads a key holding either a JSON string or a structured value
// and returns it as JSON text.
func (r requestFields) rawJSON(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", nil
	}
	if s, isStr := v.GetKind().(*structpb.Value_StringValue); isStr {
		return s.StringValue, nil
	}
	data, err := json.Marshal(v.AsInterface())
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrMalformedConditions, err)
	}
	return string(data), nil
}

func toList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

package sqlitestore

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/pingme/internal/docstore"
)

// Document bodies are stored as a marshaled structpb.Struct. Struct has no
// integer or timestamp kind, so those values are wrapped in a one-field
// struct tagged with the key below.
const (
	tagInt  = "$int"
	tagTime = "$time"
)

func encode(data map[string]any) ([]byte, error) {
	fields := make(map[string]*structpb.Value, len(data))
	for k, v := range data {
		pv, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = pv
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(&structpb.Struct{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return b, nil
}

func decode(b []byte) (map[string]any, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	out := make(map[string]any, len(st.Fields))
	for k, v := range st.Fields {
		out[k] = fromValue(v)
	}
	return out, nil
}

func toValue(v any) (*structpb.Value, error) {
	switch x := docstore.Normalize(v).(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(x), nil
	case string:
		return structpb.NewStringValue(x), nil
	case float64:
		return structpb.NewNumberValue(x), nil
	case int64:
		return tagged(tagInt, strconv.FormatInt(x, 10)), nil
	case time.Time:
		return tagged(tagTime, x.Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func tagged(tag, s string) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{tag: structpb.NewStringValue(s)},
	})
}

func fromValue(v *structpb.Value) any {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return k.NumberValue
	case *structpb.Value_StructValue:
		f := k.StructValue.GetFields()
		if len(f) != 1 {
			return nil
		}
		if s, ok := f[tagInt]; ok {
			n, err := strconv.ParseInt(s.GetStringValue(), 10, 64)
			if err != nil {
				return nil
			}
			return n
		}
		if s, ok := f[tagTime]; ok {
			t, err := time.Parse(time.RFC3339Nano, s.GetStringValue())
			if err != nil {
				return nil
			}
			return t.UTC()
		}
		return nil
	default:
		return nil
	}
}

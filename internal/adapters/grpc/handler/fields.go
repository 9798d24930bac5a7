package handler

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// fields は structpb.Struct のリクエストから型付きで値を取り出します。
type fields struct {
	values map[string]*structpb.Value
}

func fieldsOf(req *structpb.Struct) (fields, error) {
	if req == nil {
		return fields{}, status.Error(codes.InvalidArgument, "request is required")
	}
	return fields{values: req.GetFields()}, nil
}

func invalidField(name string, err error) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf("%s: %v", name, err))
}

func (f fields) present(name string) bool {
	v, ok := f.values[name]
	if !ok || v == nil {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func (f fields) str(name string) (string, error) {
	if !f.present(name) {
		return "", nil
	}
	v, ok := f.values[name].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalidField(name, fmt.Errorf("must be a string"))
	}
	return v.StringValue, nil
}

func (f fields) optStr(name string) (*string, error) {
	if !f.present(name) {
		return nil, nil
	}
	s, err := f.str(name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (f fields) optNumber(name string) (*float64, error) {
	if !f.present(name) {
		return nil, nil
	}
	v, ok := f.values[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, invalidField(name, fmt.Errorf("must be a number"))
	}
	n := v.NumberValue
	return &n, nil
}

func (f fields) integer(name string) (int, bool, error) {
	n, err := f.optNumber(name)
	if err != nil || n == nil {
		return 0, false, err
	}
	if *n != math.Trunc(*n) || math.Abs(*n) > math.MaxInt32 {
		return 0, false, invalidField(name, fmt.Errorf("must be an integer"))
	}
	return int(*n), true, nil
}

// optDecimal は文字列または数値の金額を decimal.Decimal に変換します。精度を保つには文字列を推奨します。
func (f fields) optDecimal(name string) (*decimal.Decimal, error) {
	if !f.present(name) {
		return nil, nil
	}
	switch v := f.values[name].GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(v.StringValue))
		if err != nil {
			return nil, invalidField(name, err)
		}
		return &d, nil
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(v.NumberValue)
		return &d, nil
	default:
		return nil, invalidField(name, fmt.Errorf("must be a decimal string or number"))
	}
}

func (f fields) optTime(name string) (*time.Time, error) {
	raw, err := f.str(name)
	if err != nil || raw == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, invalidField(name, err)
	}
	return &t, nil
}

// date は YYYY-MM-DD 形式の日付を UTC の 0 時として解釈します。
func (f fields) date(name string) (*time.Time, error) {
	raw, err := f.str(name)
	if err != nil || raw == "" {
		return nil, err
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil, invalidField(name, fmt.Errorf("must be YYYY-MM-DD"))
	}
	return &t, nil
}

func (f fields) list(name string) ([]*structpb.Value, error) {
	if !f.present(name) {
		return nil, nil
	}
	v, ok := f.values[name].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, invalidField(name, fmt.Errorf("must be a list"))
	}
	return v.ListValue.GetValues(), nil
}

func objectAt(name string, index int, v *structpb.Value) (fields, error) {
	obj, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return fields{}, invalidField(fmt.Sprintf("%s[%d]", name, index), fmt.Errorf("must be an object"))
	}
	return fields{values: obj.StructValue.GetFields()}, nil
}

func newResponse(payload map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, toStatusError(fmt.Errorf("encode response: %w", err))
	}
	return resp, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

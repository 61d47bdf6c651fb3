package cache

import (
	"math"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(TypePrefixes{})
	at := time.Date(2023, 12, 31, 23, 59, 59, 999999999, time.UTC)
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name  string
		input any
		want  any
	}{
		{name: "nil", input: nil, want: nil},
		{name: "string", input: "hello", want: "hello"},
		{name: "bool", input: true, want: true},
		{name: "float", input: 1.25, want: 1.25},
		{name: "int64", input: int64(math.MaxInt64), want: int64(math.MaxInt64)},
		{name: "int", input: 42, want: int64(42)},
		{name: "uint64", input: uint64(math.MaxUint64), want: uint64(math.MaxUint64)},
		{name: "bytes", input: []byte("raw\x00bytes"), want: []byte("raw\x00bytes")},
		{name: "empty bytes", input: []byte{}, want: []byte{}},
		{name: "nil bytes", input: []byte(nil), want: nil},
		{name: "timestamp", input: at, want: at},
		{name: "big int", input: huge, want: huge},
		{name: "int8 array", input: []int8{-128, 0, 127}, want: []int8{-128, 0, 127}},
		{name: "int32 array", input: []int32{1, -2}, want: []int32{1, -2}},
		{name: "int64 array", input: []int64{math.MinInt64, math.MaxInt64}, want: []int64{math.MinInt64, math.MaxInt64}},
		{name: "uint16 array", input: []uint16{65535}, want: []uint16{65535}},
		{name: "uint32 array", input: []uint32{4294967295}, want: []uint32{4294967295}},
		{name: "uint64 array", input: []uint64{math.MaxUint64}, want: []uint64{math.MaxUint64}},
		{name: "float32 array", input: []float32{0.1, -3.5}, want: []float32{0.1, -3.5}},
		{name: "float64 array", input: []float64{math.Pi}, want: []float64{math.Pi}},
		{name: "empty typed array", input: []int16{}, want: []int16{}},
		{
			name: "nested",
			input: map[string]any{
				"user": map[string]any{
					"id":      int64(7),
					"created": at,
					"avatar":  []byte{1, 2, 3},
					"tags":    []any{"a", map[string]any{"n": int64(1)}},
				},
			},
			want: map[string]any{
				"user": map[string]any{
					"id":      int64(7),
					"created": at,
					"avatar":  []byte{1, 2, 3},
					"tags":    []any{"a", map[string]any{"n": int64(1)}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := codec.Encode(tt.input)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v (envelope %s)", got, tt.want, encoded)
			}
		})
	}
}

func TestCodec_Decimal(t *testing.T) {
	codec := NewCodec(DefaultTypePrefixes())
	price := decimal.RequireFromString("12345678901234567890.000000001")

	encoded, err := codec.Encode(map[string]any{"price": price})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	decoded, ok := got.(map[string]any)["price"].(decimal.Decimal)
	if !ok {
		t.Fatalf("price decoded as %T", got.(map[string]any)["price"])
	}
	if !decoded.Equal(price) {
		t.Errorf("price = %s, want %s", decoded, price)
	}
}

type codecProfile struct {
	Bio string `json:"bio"`
}

type codecUser struct {
	ID       int64         `json:"id"`
	Email    string        `json:"email"`
	Balance  *big.Int      `json:"balance"`
	Joined   time.Time     `json:"joined"`
	Profile  *codecProfile `json:"profile,omitempty"`
	password string
}

func TestCodec_Structs(t *testing.T) {
	codec := NewCodec(TypePrefixes{})
	joined := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	user := codecUser{
		ID:       1,
		Email:    "ada@example.com",
		Balance:  big.NewInt(100),
		Joined:   joined,
		password: "secret",
	}

	encoded, err := codec.Encode([]codecUser{user})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if strings.Contains(encoded, "secret") {
		t.Error("unexported fields must not be encoded")
	}

	got, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []any{map[string]any{
		"id":      int64(1),
		"email":   "ada@example.com",
		"balance": big.NewInt(100),
		"joined":  joined,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode() = %#v, want %#v", got, want)
	}

	back, err := Convert[[]codecUser](got)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if len(back) != 1 || back[0].ID != 1 || !back[0].Joined.Equal(joined) || back[0].Balance.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("Convert() = %+v", back)
	}
}

func TestCodec_Envelope(t *testing.T) {
	codec := NewCodec(TypePrefixes{})
	encoded, err := codec.Encode(map[string]any{"b": 1, "a": "x"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"data":{"a":"x","b":"___int64_1"}}`
	if encoded != want {
		t.Errorf("Encode() = %s, want %s", encoded, want)
	}
}

func TestCodec_CustomPrefixes(t *testing.T) {
	prefixes := DefaultTypePrefixes()
	prefixes.Date = "$date:"
	codec := NewCodec(prefixes)
	at := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	encoded, err := codec.Encode(at)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(encoded, "$date:2020-06-01T00:00:00Z") {
		t.Errorf("Encode() = %s", encoded)
	}
	got, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, at) {
		t.Errorf("Decode() = %v, want %v", got, at)
	}
}

func TestCodec_MalformedTaggedStringsStayStrings(t *testing.T) {
	codec := NewCodec(TypePrefixes{})
	for _, s := range []string{"___int64_abc", "___date_yesterday", "___typed_int8:1,x", "___typed_unknown:1"} {
		got, err := codec.Decode(`{"data":"` + s + `"}`)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got != s {
			t.Errorf("Decode(%q) = %#v", s, got)
		}
	}
}

func TestCodec_DecodeInvalidEnvelope(t *testing.T) {
	codec := NewCodec(TypePrefixes{})
	if _, err := codec.Decode("not json"); err == nil {
		t.Error("expected error for invalid envelope")
	}
}

func TestTypePrefixes_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TypePrefixes)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*TypePrefixes) {}},
		{name: "empty", mutate: func(p *TypePrefixes) { p.Bytes = "" }, wantErr: true},
		{name: "shadowing", mutate: func(p *TypePrefixes) { p.Int64 = "___" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultTypePrefixes()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCodec_NormalizesIntegerWidths(t *testing.T) {
	codec := NewCodec(TypePrefixes{})
	input := map[string]any{
		"n":  1,
		"xs": []any{int32(2), int16(3), uint8(4)},
		"b":  []byte(nil),
	}

	encoded, err := codec.Encode(input)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if strings.Contains(string(encoded), DefaultTypePrefixes().Bytes) {
		t.Errorf("nil bytes encoded with the bytes prefix: %s", encoded)
	}

	got, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := map[string]any{
		"n":  int64(1),
		"xs": []any{float64(2), float64(3), float64(4)},
		"b":  nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode() = %#v, want %#v", got, want)
	}
}

package types

import (
	"bytes"
	"heapstore/pkg/primitives"
	"strings"
	"testing"
)

func TestTypeSize(t *testing.T) {
	if IntType.Size() != 4 {
		t.Errorf("Expected int size 4, got %d", IntType.Size())
	}
	if StringType.Size() != 4+StringMaxSize {
		t.Errorf("Expected string size %d, got %d", 4+StringMaxSize, StringType.Size())
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"int", IntType, false},
		{"INT", IntType, false},
		{"string", StringType, false},
		{" text ", StringType, false},
		{"float", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFieldSerializeRoundTrip(t *testing.T) {
	fields := []Field{
		NewIntField(0),
		NewIntField(-42),
		NewIntField(1 << 30),
		NewStringField(""),
		NewStringField("hello"),
	}

	for _, f := range fields {
		var buf bytes.Buffer
		if err := f.Serialize(&buf); err != nil {
			t.Fatalf("Serialize(%v) failed: %v", f, err)
		}
		if uint32(buf.Len()) != f.Type().Size() {
			t.Errorf("%v serialized to %d bytes, want %d", f, buf.Len(), f.Type().Size())
		}

		parsed, err := ParseField(&buf, f.Type())
		if err != nil {
			t.Fatalf("ParseField failed: %v", err)
		}
		if !parsed.Equals(f) {
			t.Errorf("round trip mismatch: got %v, want %v", parsed, f)
		}
	}
}

func TestStringFieldTruncation(t *testing.T) {
	long := strings.Repeat("x", StringMaxSize+10)
	f := NewStringField(long)
	if len(f.Value) != StringMaxSize {
		t.Errorf("Expected truncation to %d bytes, got %d", StringMaxSize, len(f.Value))
	}
}

func TestCompare(t *testing.T) {
	one, two := NewIntField(1), NewIntField(2)
	tests := []struct {
		op   primitives.Predicate
		want bool
	}{
		{primitives.Equals, false},
		{primitives.LessThan, true},
		{primitives.GreaterThan, false},
		{primitives.LessThanOrEqual, true},
		{primitives.GreaterThanOrEqual, false},
		{primitives.NotEqual, true},
	}
	for _, tt := range tests {
		got, err := one.Compare(tt.op, two)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("1 %v 2 = %v, want %v", tt.op, got, tt.want)
		}
	}

	s := NewStringField("database")
	if ok, _ := s.Compare(primitives.Like, NewStringField("base")); !ok {
		t.Error("expected LIKE substring match")
	}
	if ok, _ := s.Compare(primitives.Equals, one); ok {
		t.Error("fields of different kinds must not compare equal")
	}
}

func TestParseText(t *testing.T) {
	f, err := ParseText("17", IntType)
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	if !f.Equals(NewIntField(17)) {
		t.Errorf("got %v", f)
	}
	if _, err := ParseText("abc", IntType); err == nil {
		t.Error("expected error for non-numeric int")
	}
	f, _ = ParseText("abc", StringType)
	if f.String() != "abc" {
		t.Errorf("got %v", f)
	}
}

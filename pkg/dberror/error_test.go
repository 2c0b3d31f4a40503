package dberror

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestNewf_MatchesSentinel(t *testing.T) {
	err := Newf(ErrLockTimeout, "GetPage", "LockManager", "tx %d on page %d", 3, 7)

	if !errors.Is(err, ErrLockTimeout) {
		t.Error("expected errors.Is to match ErrLockTimeout")
	}
	if errors.Is(err, ErrResourceExhausted) {
		t.Error("did not expect a match against ErrResourceExhausted")
	}

	wrapped := fmt.Errorf("insert failed: %w", err)
	if !errors.Is(wrapped, ErrLockTimeout) {
		t.Error("expected match through fmt.Errorf wrapping")
	}
}

func TestError_Format(t *testing.T) {
	err := Newf(ErrInvalidPageReference, "ReadPage", "HeapFile", "page 9 beyond end of file")
	msg := err.Error()

	for _, want := range []string{"[INVALID_PAGE_REFERENCE]", "page 9 beyond end of file", "operation: ReadPage", "component: HeapFile"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeIO, "op", "comp") != nil {
		t.Error("wrapping nil should return nil")
	}

	err := Wrap(io.ErrUnexpectedEOF, CodeIO, "ReadPage", "HeapFile")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable")
	}
	if err.Category != ErrCategorySystem {
		t.Errorf("expected system category, got %v", err.Category)
	}

	inner := New(ErrCategoryUser, CodeSchemaMismatch, "bad tuple")
	if got := Wrap(inner, CodeIO, "InsertTuple", "PageStore"); got != inner || got.Operation != "InsertTuple" {
		t.Error("expected existing DBError to be enriched in place")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{Newf(ErrLockTimeout, "", "", ""), true},
		{fmt.Errorf("x: %w", Newf(ErrResourceExhausted, "", "", "")), true},
		{Newf(ErrSchemaMismatch, "", "", ""), false},
		{io.EOF, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestFormatStack(t *testing.T) {
	if ErrLockTimeout.FormatStack() != "" {
		t.Error("sentinels carry no stack")
	}
	if !strings.Contains(New(ErrCategorySystem, CodeIO, "x").FormatStack(), "Stack trace") {
		t.Error("expected a captured stack")
	}
}

package errors

import (
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeLimitInvalid, "row limit must be positive").Err()
	want := "E1001: row limit must be positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapChain(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrCodeFetchConnect, "open mssql connection").Err()

	if !Is(err, cause) {
		t.Error("wrapped cause not found by Is")
	}
	if got := err.Error(); got != "E4001: open mssql connection: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCodeTokenize, "bad input").Err()
	if GetCode(err) != ErrCodeTokenize {
		t.Errorf("GetCode = %v", GetCode(err))
	}
	if GetCode(fmt.Errorf("plain")) != ErrCodeInternal {
		t.Error("plain errors should report ErrCodeInternal")
	}
	wrapped := fmt.Errorf("outer: %w", New(ErrCodeEngineUnknown, "x").Err())
	if GetCode(wrapped) != ErrCodeEngineUnknown {
		t.Error("GetCode should unwrap standard wrapping")
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{ErrCodeLimitInvalid, "argument"},
		{ErrCodeEngineUnknown, "argument"},
		{ErrCodeTokenize, "tokenizer"},
		{ErrCodeStatementEmpty, "tokenizer"},
		{ErrCodeRewriteFailed, "rewrite"},
		{ErrCodeFetchConnect, "fetch"},
		{ErrCodeInternal, "internal"},
	}
	for _, tt := range tests {
		if got := tt.code.Category(); got != tt.want {
			t.Errorf("%v.Category() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestBuilderFields(t *testing.T) {
	err := InvalidLimit(-5).WithOp("Engine.ApplyLimit").Err()

	if !IsCode(err, ErrCodeLimitInvalid) {
		t.Errorf("code = %v", GetCode(err))
	}
	fields := GetFields(err)
	if fields["limit"] != -5 {
		t.Errorf("fields = %v", fields)
	}
	if !IsCategory(err, "argument") {
		t.Error("expected argument category")
	}
}

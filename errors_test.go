package stockledger_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/stockledger"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", stockledger.ValidationError{Field: "quantity", Message: "must be positive"}, stockledger.CodeValidation},
		{"wrapped validation", fmt.Errorf("reserve: %w", stockledger.ValidationError{Field: "x"}), stockledger.CodeValidation},
		{"sku not found", stockledger.ErrSKUNotFound, stockledger.CodeNotFound},
		{"product not found", fmt.Errorf("lookup: %w", stockledger.ErrProductNotFound), stockledger.CodeNotFound},
		{"insufficient", &stockledger.InsufficientStockError{Requested: 2, Limit: 1}, stockledger.CodeInsufficientStock},
		{"inactive sku", &stockledger.BusinessRuleError{Err: stockledger.ErrSKUInactive}, stockledger.CodeBusinessRule},
		{"duplicate", stockledger.ErrAlreadyExists, stockledger.CodeBusinessRule},
		{"version conflict", fmt.Errorf("update: %w", stockledger.ErrVersionConflict), stockledger.CodeVersionConflict},
		{"unknown", errors.New("disk on fire"), stockledger.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stockledger.CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	short := &stockledger.InsufficientStockError{SKUID: "sku_x", Requested: 10, Limit: 4, Limiting: "available"}
	if !errors.Is(short, stockledger.ErrInsufficientStock) {
		t.Error("InsufficientStockError should match ErrInsufficientStock")
	}
	if stockledger.IsRetryable(short) {
		t.Error("shortage must not be retryable")
	}
	if !stockledger.IsRetryable(stockledger.ErrVersionConflict) {
		t.Error("version conflict must be retryable")
	}

	var multi stockledger.MultiError
	multi.Add(nil)
	multi.Add(stockledger.ErrSKUNotFound)
	multi.Add(short)
	if !multi.HasErrors() || len(multi.Errors) != 2 {
		t.Fatalf("multi = %v", multi.Errors)
	}
	if !errors.Is(multi, stockledger.ErrSKUNotFound) || !errors.Is(multi, stockledger.ErrInsufficientStock) {
		t.Error("MultiError should expose every wrapped error")
	}
}

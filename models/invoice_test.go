package models

import "testing"

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain short number", "74", "00000074"},
		{"labelled number", "Factura No. 125", "00000125"},
		{"already padded", "00000125", "00000125"},
		{"eight digits untouched", "20260831", "20260831"},
		{"longer than eight kept whole", "1234567890", "1234567890"},
		{"no digits at all", "sin numero", ""},
		{"empty", "", ""},
		{"surrounding whitespace", "  8  ", "00000008"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeNumber(tt.in); got != tt.want {
				t.Fatalf("NormalizeNumber(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInvoicePending(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"pending", true},
		{"Pendiente", true},
		{"  PENDIENTE  ", true},
		{"Pendiente ", true},
		{"pagada", false},
		{"paid", false},
		{"", false},
	}
	for _, tt := range tests {
		inv := Invoice{Status: tt.status}
		if got := inv.Pending(); got != tt.want {
			t.Errorf("Pending() with status %q = %t, want %t", tt.status, got, tt.want)
		}
	}
}

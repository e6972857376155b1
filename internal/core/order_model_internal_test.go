package core

import "testing"

func TestTenderStatus(t *testing.T) {
	total := MustMoney("167.68")
	tests := []struct {
		tendered string
		status   PaymentStatus
		change   string
	}{
		{"0", PaymentStatusUnpaid, "0.00"},
		{"100.00", PaymentStatusPartial, "0.00"},
		{"167.68", PaymentStatusPaid, "0.00"},
		{"172.00", PaymentStatusPaid, "4.32"},
	}
	for _, tt := range tests {
		status, change := tenderStatus(total, MustMoney(tt.tendered))
		if status != tt.status || change.String() != tt.change {
			t.Errorf("tendered %s: expected %s/%s, got %s/%s", tt.tendered, tt.status, tt.change, status, change)
		}
	}
}

func TestPageNormalize(t *testing.T) {
	if p := (Page{}).Normalize(); p.Limit != defaultPageLimit || p.Offset != 0 {
		t.Errorf("Expected defaults, got %+v", p)
	}
	if p := (Page{Limit: 10000, Offset: -4}).Normalize(); p.Limit != maxPageLimit || p.Offset != 0 {
		t.Errorf("Expected clamped page, got %+v", p)
	}
}

func TestUniqueViolationIgnoresOtherErrors(t *testing.T) {
	if isUniqueViolation(nil, "") {
		t.Errorf("Expected nil not to be a unique violation")
	}
}

package core_test

import (
	"encoding/json"
	"testing"

	"lumberyard/internal/core"

	"github.com/shopspring/decimal"
)

func TestMoney_RoundHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"412.08750", "412.09"},
		{"412.0849", "412.08"},
		{"0.005", "0.01"},
		{"-0.005", "-0.01"},
		{"17.3085", "17.31"},
		{"10", "10.00"},
	}
	for _, tt := range tests {
		got := core.MustMoney(tt.in).Round().String()
		if got != tt.want {
			t.Errorf("Round(%s): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestMoney_NoFloatDrift(t *testing.T) {
	sum := core.ZeroMoney
	for i := 0; i < 10; i++ {
		sum = sum.Add(core.MustMoney("0.10"))
	}
	if !sum.Equal(core.MustMoney("1.00")) {
		t.Errorf("Expected ten dimes to equal 1.00 exactly, got %s", sum)
	}

	a := core.MustMoney("4995.00").MulRate(decimal.RequireFromString("0.0825")).Round()
	b := core.MustMoney("4000.00").Add(core.MustMoney("995.00")).MulRate(decimal.RequireFromString("0.0825")).Round()
	if !a.Equal(b) || a.String() != "412.09" {
		t.Errorf("Expected equal totals to round identically to 412.09, got %s and %s", a, b)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	m := core.MustMoney("5.49").MulQty(100)
	if m.String() != "549.00" {
		t.Errorf("Expected 549.00, got %s", m)
	}
	if got := core.MinMoney(core.MustMoney("3"), core.MustMoney("2.5")); got.String() != "2.50" {
		t.Errorf("Expected min 2.50, got %s", got)
	}
	if got := core.MaxMoney(core.MustMoney("3"), core.MustMoney("2.5")); got.String() != "3.00" {
		t.Errorf("Expected max 3.00, got %s", got)
	}
	if core.MoneyFromCents(12345).String() != "123.45" {
		t.Errorf("Expected 123.45 from cents")
	}
}

func TestMoney_Validation(t *testing.T) {
	if err := core.MustMoney("-1").RequireNonNegative("discount"); core.KindOf(err) != core.KindValidation {
		t.Errorf("Expected validation error for negative amount, got %v", err)
	}
	if err := core.ZeroMoney.RequireNonNegative("discount"); err != nil {
		t.Errorf("Expected zero to be non-negative, got %v", err)
	}
	if err := core.ZeroMoney.RequirePositive("amount"); core.KindOf(err) != core.KindValidation {
		t.Errorf("Expected validation error for zero amount, got %v", err)
	}
	if _, err := core.NewMoney("12.3.4"); err == nil {
		t.Errorf("Expected parse error for malformed literal")
	}
}

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Total core.Money `json:"total"`
	}{core.MustMoney("5407.09")})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `{"total":"5407.09"}` {
		t.Errorf("Unexpected JSON %s", b)
	}

	var in struct {
		A core.Money `json:"a"`
		B core.Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"0.10","b":0.20}`), &in); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if in.A.Add(in.B).String() != "0.30" {
		t.Errorf("Expected 0.30, got %s", in.A.Add(in.B))
	}
}

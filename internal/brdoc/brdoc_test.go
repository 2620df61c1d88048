package brdoc

import (
	"testing"
	"time"
)

func TestValidCPFKnownGood(t *testing.T) {
	for _, cpf := range []string{"111.444.777-35", "11144477735", "529.982.247-25"} {
		if !ValidCPF(cpf) {
			t.Fatalf("expected %q to be valid", cpf)
		}
	}
}

func TestValidCPFRejectsSingleDigitFlips(t *testing.T) {
	base := "11144477735"
	for i := 0; i < len(base); i++ {
		flipped := []byte(base)
		flipped[i] = '0' + (flipped[i]-'0'+1)%10
		if ValidCPF(string(flipped)) {
			t.Fatalf("flipping digit %d produced a valid CPF %q", i, flipped)
		}
	}
}

func TestValidCPFRejectsDegenerateInputs(t *testing.T) {
	cases := []string{"", "123", "000.000.000-00", "111.111.111-11", "1114447773", "111444777350"}
	for _, cpf := range cases {
		if ValidCPF(cpf) {
			t.Fatalf("expected %q to be invalid", cpf)
		}
	}
}

func TestFormatCPF(t *testing.T) {
	if got := FormatCPF("11144477735"); got != "111.444.777-35" {
		t.Fatalf("FormatCPF = %q", got)
	}
	if got := FormatCPF("123"); got != "123" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestPhone(t *testing.T) {
	if !ValidPhone("(11) 98765-4321") {
		t.Fatal("masked mobile number should validate")
	}
	if ValidPhone("(11) 8765-4321") {
		t.Fatal("10-digit number should not validate")
	}
	if got := FormatPhone("11987654321"); got != "(11) 98765-4321" {
		t.Fatalf("FormatPhone = %q", got)
	}
}

func TestCardExpiry(t *testing.T) {
	now := time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want bool
	}{
		{"09/26", true},  // current month
		{"08/26", false}, // previous month
		{"12/25", false},
		{"01/27", true},
		{"13/27", false},
		{"00/27", false},
		{"9/26", false}, // must be MM/YY
		{"09-26", false},
	}
	for _, tc := range cases {
		if got := ValidCardExpiry(tc.in, now); got != tc.want {
			t.Fatalf("ValidCardExpiry(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

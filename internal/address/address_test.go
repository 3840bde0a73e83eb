package address

import "testing"

func TestFromStringIPv4(t *testing.T) {
	a, err := FromString("192.0.2.1")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if !a.IsIPv4() {
		t.Fatalf("expected IPv4 family")
	}
	if got := a.String(); got != "192.0.2.1" {
		t.Fatalf("String() = %q, want 192.0.2.1", got)
	}
}

func TestFromStringIPv6(t *testing.T) {
	a, err := FromString("2001:db8::1")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if !a.IsIPv6() {
		t.Fatalf("expected IPv6 family")
	}
	if got := a.String(); got != "2001:db8::1" {
		t.Fatalf("String() = %q, want 2001:db8::1", got)
	}
}

func TestFromStringInvalid(t *testing.T) {
	if _, err := FromString("not-an-address"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func TestEqual(t *testing.T) {
	a, _ := FromString("10.0.0.1")
	b, _ := FromString("10.0.0.1")
	c, _ := FromString("10.0.0.2")
	if !a.Equal(b) {
		t.Fatalf("expected a == b")
	}
	if a.Equal(c) {
		t.Fatalf("expected a != c")
	}
}

func TestZero(t *testing.T) {
	var a Address
	if !a.Zero() {
		t.Fatalf("zero-value Address should report Zero() == true")
	}
	b, _ := FromString("0.0.0.0")
	if !b.Zero() {
		t.Fatalf("0.0.0.0 parses to all-zero octets, Zero() should be true")
	}
}

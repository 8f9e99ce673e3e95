package types

import "testing"

func TestShippingAddressValueScanRoundTrip(t *testing.T) {
	in := ShippingAddress{Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	raw, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out ShippingAddress
	if err := out.Scan([]byte(raw.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v got %+v", in, out)
	}
}

func TestShippingAddressScanNil(t *testing.T) {
	out := ShippingAddress{City: "stale"}
	if err := out.Scan(nil); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !out.IsZero() {
		t.Fatalf("expected zero address, got %+v", out)
	}
}

func TestShippingAddressScanRejectsUnknownType(t *testing.T) {
	var out ShippingAddress
	if err := out.Scan(42); err == nil {
		t.Fatal("expected error for int input")
	}
}

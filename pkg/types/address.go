package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the structured destination captured from the payment
// gateway and persisted as jsonb on orders.
type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsZero reports whether no address component was provided.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.Line2) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.Country) == ""
}

// Value marshals the address into a json document.
func (a ShippingAddress) Value() (driver.Value, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	return string(raw), nil
}

// Scan decodes a json document into the address.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	if strings.TrimSpace(raw) == "" {
		*a = ShippingAddress{}
		return nil
	}
	var decoded ShippingAddress
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("shipping address: %w", err)
	}
	*a = decoded
	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

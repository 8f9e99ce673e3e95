package fulfillment

import (
	"strings"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
)

const defaultCountry = "US"

var countryCodes = map[string]string{
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"canada":                   "CA",
	"united kingdom":           "GB",
	"great britain":            "GB",
	"england":                  "GB",
	"australia":                "AU",
	"new zealand":              "NZ",
	"ireland":                  "IE",
	"germany":                  "DE",
	"france":                   "FR",
	"spain":                    "ES",
	"italy":                    "IT",
	"netherlands":              "NL",
	"belgium":                  "BE",
	"sweden":                   "SE",
	"norway":                   "NO",
	"denmark":                  "DK",
	"finland":                  "FI",
	"mexico":                   "MX",
	"japan":                    "JP",
}

// NormalizeCountry returns a two-letter country code. Unknown names fall
// back to their first two letters.
func NormalizeCountry(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultCountry
	}
	if len(value) == 2 {
		return strings.ToUpper(value)
	}
	if code, ok := countryCodes[strings.ToLower(value)]; ok {
		return code
	}
	if len(value) > 2 {
		return strings.ToUpper(value[:2])
	}
	return strings.ToUpper(value)
}

// SplitName splits a full name into first and last parts.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "Customer", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// missingFields lists required destination fields that are blank.
func missingFields(order *models.Order) []string {
	var missing []string
	if strings.TrimSpace(order.CustomerEmail) == "" {
		missing = append(missing, "email")
	}
	addr := order.ShippingAddress
	if addr == nil || strings.TrimSpace(addr.Line1) == "" {
		missing = append(missing, "street address")
	}
	if addr == nil || strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "city")
	}
	if addr == nil || strings.TrimSpace(addr.PostalCode) == "" {
		missing = append(missing, "postal code")
	}
	return missing
}

func addressTo(order *models.Order) printify.OrderAddress {
	var name, phone string
	if order.CustomerName != nil {
		name = *order.CustomerName
	}
	if order.CustomerPhone != nil {
		phone = *order.CustomerPhone
	}
	first, last := SplitName(name)
	out := printify.OrderAddress{
		FirstName: first,
		LastName:  last,
		Email:     strings.TrimSpace(order.CustomerEmail),
		Phone:     phone,
		Country:   defaultCountry,
	}
	if addr := order.ShippingAddress; addr != nil {
		out.Country = NormalizeCountry(addr.Country)
		out.Region = strings.TrimSpace(addr.State)
		out.Address1 = strings.TrimSpace(addr.Line1)
		out.Address2 = strings.TrimSpace(addr.Line2)
		out.City = strings.TrimSpace(addr.City)
		out.Zip = strings.TrimSpace(addr.PostalCode)
	}
	return out
}

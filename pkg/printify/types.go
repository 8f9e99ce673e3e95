package printify

// ProductSummary is one row of the paginated product listing.
type ProductSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visible     bool     `json:"visible"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type productPage struct {
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	Data        []ProductSummary `json:"data"`
}

// OptionValue is one selectable value within an option group.
type OptionValue struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Colors    []string `json:"colors,omitempty"`
	HexColors []string `json:"hex_colors,omitempty"`
}

// Option is an ordered option group (size, color, ...) of a product.
type Option struct {
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Values []OptionValue `json:"values"`
}

// Variant is a provider-side purchasable variant.
type Variant struct {
	ID          int    `json:"id"`
	SKU         string `json:"sku"`
	Cost        int64  `json:"cost"`
	Price       int64  `json:"price"`
	Title       string `json:"title"`
	Grams       int    `json:"grams"`
	IsEnabled   bool   `json:"is_enabled"`
	IsDefault   bool   `json:"is_default"`
	IsAvailable bool   `json:"is_available"`
	Options     []int  `json:"options"`
}

// Image is a mockup image, optionally tagged with the variants it depicts.
type Image struct {
	Src        string `json:"src"`
	VariantIDs []int  `json:"variant_ids"`
	Position   string `json:"position"`
	IsDefault  bool   `json:"is_default"`
}

// Product is the full product detail including options, variants and images.
type Product struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Tags            []string  `json:"tags"`
	Options         []Option  `json:"options"`
	Variants        []Variant `json:"variants"`
	Images          []Image   `json:"images"`
	Visible         bool      `json:"visible"`
	IsLocked        bool      `json:"is_locked"`
	BlueprintID     int       `json:"blueprint_id"`
	ShopID          int       `json:"shop_id"`
	PrintProviderID int       `json:"print_provider_id"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
}

// OrderLineItem references a provider product/variant pair.
type OrderLineItem struct {
	ProductID string `json:"product_id"`
	VariantID int    `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// OrderAddress is the provider's address_to block.
type OrderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

// OrderRequest is the payload for POST /shops/{id}/orders.json.
type OrderRequest struct {
	ExternalID               string          `json:"external_id"`
	Label                    string          `json:"label"`
	LineItems                []OrderLineItem `json:"line_items"`
	ShippingMethod           int             `json:"shipping_method"`
	SendShippingNotification bool            `json:"send_shipping_notification"`
	AddressTo                OrderAddress    `json:"address_to"`
}

// OrderResponse carries the provider order id plus the raw body for audit.
type OrderResponse struct {
	ID  string         `json:"id"`
	Raw map[string]any `json:"-"`
}

// PublishingExternal links a provider product to its storefront listing.
type PublishingExternal struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

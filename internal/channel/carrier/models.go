package carrier

// Wire shapes for the carrier's order/shipment API. Most fields are
// optional in practice; defaulting happens in normalize.go only.

type ordersResponse struct {
	Data []OrderRecord `json:"data"`
	Meta meta          `json:"meta"`
}

type meta struct {
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	Links links `json:"links"`
}

type links struct {
	Next string `json:"next"`
}

type OrderRecord struct {
	ChannelOrderID string           `json:"channel_order_id"`
	Status         string           `json:"status"`
	CreatedAt      string           `json:"created_at"` // dd/mm/yyyy hh:mm
	UpdatedAt      string           `json:"updated_at"`
	CustomerName   *string          `json:"customer_name"`
	CustomerPhone  *string          `json:"customer_phone"`
	CustomerEmail  *string          `json:"customer_email"`
	Address        *string          `json:"customer_address"`
	City           *string          `json:"customer_city"`
	State          *string          `json:"customer_state"`
	Pincode        *string          `json:"customer_pincode"`
	PaymentMethod  *string          `json:"payment_method"`
	Total          string           `json:"total"`
	Tax            string           `json:"tax"`
	Discount       string           `json:"discount"`
	Products       []ProductRecord  `json:"products"`
	Shipments      []ShipmentRecord `json:"shipments"`
}

type ProductRecord struct {
	SKU      string  `json:"sku"`
	Name     *string `json:"name"`
	Quantity int     `json:"quantity"`
	Price    string  `json:"price"`
}

type ShipmentRecord struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

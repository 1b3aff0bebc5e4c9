package marketa

// Wire shapes for marketplace A's orders API. Nearly everything is
// optional; normalize.go owns the fallback policy.

type ordersResponse struct {
	Payload payload `json:"payload"`
}

type payload struct {
	Orders    []OrderRecord `json:"orders"`
	NextToken string        `json:"nextToken"`
}

type OrderRecord struct {
	OrderID         string       `json:"orderId"`
	PurchaseDate    string       `json:"purchaseDate"`   // ISO-8601
	LastUpdateDate  string       `json:"lastUpdateDate"` // ISO-8601
	OrderStatus     string       `json:"orderStatus"`
	BuyerName       *string      `json:"buyerName"`
	BuyerEmail      *string      `json:"buyerEmail"`
	BuyerPhone      *string      `json:"buyerPhone"`
	PaymentMethod   *string      `json:"paymentMethod"`
	OrderTotal      *Money       `json:"orderTotal"`
	ShippingAddress *Address     `json:"shippingAddress"`
	Items           []ItemRecord `json:"orderItems"`
}

type Address struct {
	Line1      *string `json:"addressLine1"`
	City       *string `json:"city"`
	StateOrReg *string `json:"stateOrRegion"`
	PostalCode *string `json:"postalCode"`
}

type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type ItemRecord struct {
	OrderItemID string  `json:"orderItemId"`
	SKU         *string `json:"sellerSku"`
	Title       *string `json:"title"`
	Quantity    int     `json:"quantityOrdered"`
	ItemPrice   *Money  `json:"itemPrice"`
}

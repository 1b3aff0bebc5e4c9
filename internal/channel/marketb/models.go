package marketb

// Wire shapes for marketplace B's order search API.

type searchRequest struct {
	Filter searchFilter `json:"filter"`
}

type searchFilter struct {
	Type      string    `json:"type"`
	States    []string  `json:"states"`
	DateRange dateRange `json:"dateRange"`
}

type dateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type searchResponse struct {
	Orders      []OrderRecord `json:"orders"`
	HasMore     bool          `json:"hasMore"`
	NextPageURL string        `json:"nextPageUrl"`
}

type OrderRecord struct {
	OrderID       string           `json:"orderId"`
	OrderDate     string           `json:"orderDate"` // dd/mm/yyyy
	UpdatedAt     string           `json:"updatedAt"`
	State         string           `json:"state"`
	Customer      *Customer        `json:"customer"`
	PaymentMethod *string          `json:"paymentMethod"`
	Amount        string           `json:"amount"`
	TaxAmount     string           `json:"taxAmount"`
	Discounts     []DiscountRecord `json:"discounts"`
	UTMSource     *string          `json:"utmSource"`
	UTMCampaign   *string          `json:"utmCampaign"`
	Lines         []LineRecord     `json:"orderLines"`
}

type Customer struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Pincode *string `json:"pincode"`
}

type DiscountRecord struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

type LineRecord struct {
	SKU      string  `json:"sku"`
	Title    *string `json:"title"`
	Quantity int     `json:"quantity"`
	NetPrice string  `json:"netPrice"`
}

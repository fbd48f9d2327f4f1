package service

// CartItemInput is a raw cart line as submitted by the storefront. The unit
// price is deliberately absent: lines are priced from the catalog.
type CartItemInput struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Quantity int    `json:"qty"`
}

// CustomerInput is the raw customer block of a cart submission
type CustomerInput struct {
	Name         string `json:"name"`
	RUT          string `json:"rut"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	DocumentType string `json:"documentType"`
}

// CreateOrderRequest is the cart submission payload
type CreateOrderRequest struct {
	OrderID        string          `json:"orderId"`
	Items          []CartItemInput `json:"items"`
	Customer       CustomerInput   `json:"customer"`
	DeliveryMethod string          `json:"deliveryMethod"`
	Address        string          `json:"address"`
	Source         string          `json:"source"`
}

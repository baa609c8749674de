package domain

import "time"

// Status — статус заказа. Допустимый набор определяет хранилище (CHECK в таблице orders),
// сервис значение не проверяет и передаёт как есть.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Order — заказ покупателя вместе с позициями.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Status      Status      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Items       []OrderItem `json:"items"`
}

// OrderItem — позиция заказа (товар, количество, цена на момент покупки).
type OrderItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// OrderFilter — параметры выборки списка заказов для бэк-офиса.
type OrderFilter struct {
	Status Status
	Limit  int
	Offset int
}

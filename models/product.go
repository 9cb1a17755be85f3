package models

type Product struct {
	ID        string  `json:"product_id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Stock     int     `json:"stock" db:"stock"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
}

package models

import "gorm.io/gorm"

// Product represents a product in the store catalog.
// Deactivated products (IsActive=false) are hidden from catalog queries but
// kept around so order history can still reference them.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required,min=1,max=100"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Image       string  `json:"image" validate:"omitempty,url"`
	IsActive    bool    `json:"isActive" gorm:"default:true"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

package model

import "time"

// Service is a bookable offering owned by exactly one provider.  Price,
// BaseHours and MaxWorkers feed the estimate computed when a booking is
// created.  ProviderName and CategoryName are only filled by listing
// queries that join users and service_categories.
type Service struct {
    ID           uint64    `json:"id"`
    ProviderID   uint64    `json:"provider_id"`
    CategoryID   *uint64   `json:"category_id"`
    Name         string    `json:"name"`
    Description  string    `json:"description"`
    Price        float64   `json:"price"`
    BaseHours    float64   `json:"base_hours"`
    MaxWorkers   int       `json:"max_workers"`
    CreatedAt    time.Time `json:"created_at"`
    ProviderName string    `json:"provider_name,omitempty"`
    CategoryName string    `json:"category_name,omitempty"`
}

// Category groups services (service_categories table).
type Category struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
}

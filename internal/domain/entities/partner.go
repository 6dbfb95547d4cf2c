package entities

import (
	"time"
)

// ApprovalStatus is the moderation state of a partner
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusSuspended ApprovalStatus = "suspended"
)

// Valid reports whether s is a known status
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusSuspended:
		return true
	}
	return false
}

// Service categories offered by partners
const (
	ServiceCategoryTowing   = "towing"
	ServiceCategoryTyre     = "tyre"
	ServiceCategoryBattery  = "battery"
	ServiceCategoryFuel     = "fuel"
	ServiceCategoryMechanic = "mechanic"
	ServiceCategoryLockout  = "lockout"
)

// Partner represents a service partner (garage, tyre shop, towing operator)
type Partner struct {
	ID                 string         `json:"id" db:"id"`
	BusinessName       string         `json:"business_name" db:"business_name"`
	OwnerName          string         `json:"owner_name" db:"owner_name"`
	PhoneNumber        string         `json:"phone_number" db:"phone_number"`
	Email              string         `json:"email" db:"email"`
	Address            Address        `json:"address" db:"-"`
	Location           GeoPoint       `json:"location" db:"-"`
	ServiceCategories  []string       `json:"service_categories" db:"service_categories"`
	EmergencyAvailable bool           `json:"emergency_available" db:"emergency_available"`
	ApprovalStatus     ApprovalStatus `json:"approval_status" db:"approval_status"`
	IsActive           bool           `json:"is_active" db:"is_active"`
	Rating             float64        `json:"rating" db:"rating"`
	ReviewCount        int            `json:"review_count" db:"review_count"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// Address represents a physical address
type Address struct {
	Street     string `json:"street" db:"street"`
	City       string `json:"city" db:"city"`
	State      string `json:"state" db:"state"`
	PostalCode string `json:"postal_code" db:"postal_code"`
	Country    string `json:"country" db:"country"`
}

// Searchable reports whether the partner may appear in customer-facing search
func (p *Partner) Searchable() bool {
	return p.ApprovalStatus == ApprovalStatusApproved && p.IsActive
}

// RankedPartner is a partner annotated with its distance from the search origin.
// The partner fields are flattened into the JSON object next to "distance".
type RankedPartner struct {
	*Partner
	DistanceKm float64 `json:"distance"`
}

package domain

import "time"

const (
	EventPurchaseCancelled = "PurchaseCancelled"
	EventPurchaseConfirmed = "PurchaseConfirmed"
)

type PurchaseCancelled struct {
	PropertyID  string    `json:"propertyId"`
	SellerID    string    `json:"sellerId,omitempty"`
	BuyerID     string    `json:"buyerId"`
	InitiatedBy Role      `json:"initiatedBy"`
	Warnings    int       `json:"warnings"`
	At          time.Time `json:"at"`
}

type PurchaseConfirmed struct {
	PropertyID string    `json:"propertyId"`
	SellerID   string    `json:"sellerId,omitempty"`
	BuyerID    string    `json:"buyerId"`
	At         time.Time `json:"at"`
}

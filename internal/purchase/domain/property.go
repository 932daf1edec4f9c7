package domain

import "github.com/dmehra2102/Property-Marketplace/pkg/docstore"

// Property document fields.
const (
	FieldOwnerID                  = "ownerId"
	FieldTitle                    = "title"
	FieldAddress                  = "address"
	FieldPrice                    = "price"
	FieldIsUnderPurchase          = "isUnderPurchase"
	FieldConfirmedBuyerID         = "confirmedBuyerId"
	FieldBuyerConfirmed           = "buyerConfirmed"
	FieldSellerDocumentsConfirmed = "sellerDocumentsConfirmed"
)

type PurchaseState string

const (
	StateAvailable     PurchaseState = "available"
	StateUnderPurchase PurchaseState = "under_purchase"
)

type Property struct {
	ID                       string
	OwnerID                  string
	Title                    string
	Address                  string
	Price                    any
	IsUnderPurchase          bool
	ConfirmedBuyerID         string
	BuyerConfirmed           bool
	SellerDocumentsConfirmed bool
}

func PropertyFromDocument(doc docstore.Document) Property {
	return Property{
		ID:                       doc.ID,
		OwnerID:                  doc.String(FieldOwnerID),
		Title:                    doc.String(FieldTitle),
		Address:                  doc.String(FieldAddress),
		Price:                    doc.Data[FieldPrice],
		IsUnderPurchase:          doc.Bool(FieldIsUnderPurchase),
		ConfirmedBuyerID:         doc.String(FieldConfirmedBuyerID),
		BuyerConfirmed:           doc.Bool(FieldBuyerConfirmed),
		SellerDocumentsConfirmed: doc.Bool(FieldSellerDocumentsConfirmed),
	}
}

// State derives availability from confirmedBuyerId alone; the flag fields
// follow it.
func (p Property) State() PurchaseState {
	if p.ConfirmedBuyerID != "" {
		return StateUnderPurchase
	}
	return StateAvailable
}

// Participants is the snapshot of who is involved in a purchase.
type Participants struct {
	PropertyID string
	SellerID   string
	BuyerID    string
	Title      string
}

func (p Property) Participants() Participants {
	return Participants{
		PropertyID: p.ID,
		SellerID:   p.OwnerID,
		BuyerID:    p.ConfirmedBuyerID,
		Title:      p.Title,
	}
}

// ClearedPurchaseFlags is the merge patch that makes a property available again.
func ClearedPurchaseFlags() map[string]any {
	return map[string]any{
		FieldIsUnderPurchase:          false,
		FieldConfirmedBuyerID:         nil,
		FieldBuyerConfirmed:           false,
		FieldSellerDocumentsConfirmed: false,
	}
}

func ConfirmedPurchaseFlags(buyerID string) map[string]any {
	return map[string]any{
		FieldIsUnderPurchase:          true,
		FieldConfirmedBuyerID:         buyerID,
		FieldBuyerConfirmed:           true,
		FieldSellerDocumentsConfirmed: false,
	}
}

// BuyerRecord is the buyer's denormalized copy of the property under purchase.
func BuyerRecord(p Property, buyerID string) map[string]any {
	return map[string]any{
		"propertyId":          p.ID,
		"buyerId":             buyerID,
		"sellerId":            p.OwnerID,
		FieldTitle:            p.Title,
		FieldAddress:          p.Address,
		FieldPrice:            p.Price,
		FieldIsUnderPurchase:  true,
		FieldBuyerConfirmed:   true,
		FieldConfirmedBuyerID: buyerID,
	}
}

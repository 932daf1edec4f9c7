package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationPurchaseCancelled NotificationType = "purchase_cancelled"
	NotificationPurchaseConfirmed NotificationType = "purchase_confirmed"
)

// Notification document fields.
const (
	FieldRelatedID = "relatedId"
)

// Screens a notification links to.
const (
	HrefMyProperties = "/my-properties"
	HrefSell         = "/sell"
)

type Notification struct {
	ID         string
	UserID     string
	Type       NotificationType
	Title      string
	Message    string
	ActionHref string
	RelatedID  string
	Read       bool
	CreatedAt  time.Time
}

func (n Notification) Fields() map[string]any {
	return map[string]any{
		"id":           n.ID,
		"userId":       n.UserID,
		"type":         string(n.Type),
		"title":        n.Title,
		"message":      n.Message,
		"actionHref":   n.ActionHref,
		FieldRelatedID: n.RelatedID,
		"read":         n.Read,
		"createdAt":    n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func hrefFor(recipient Role) string {
	if recipient == RoleSeller {
		return HrefSell
	}
	return HrefMyProperties
}

func displayTitle(title string) string {
	if title == "" {
		return "this property"
	}
	return fmt.Sprintf("%q", title)
}

// CancellationNotice builds the notification a participant receives when a
// purchase is cancelled. The wording is first person for the side that
// cancelled and third person for the other side.
func CancellationNotice(p Participants, initiatedBy, recipient Role) Notification {
	title := displayTitle(p.Title)
	var msg string
	switch {
	case initiatedBy == RoleBuyer && recipient == RoleBuyer:
		msg = fmt.Sprintf("You cancelled your purchase of %s.", title)
	case initiatedBy == RoleBuyer && recipient == RoleSeller:
		msg = fmt.Sprintf("The buyer cancelled the purchase of %s. Your listing is available again.", title)
	case initiatedBy == RoleSeller && recipient == RoleBuyer:
		msg = fmt.Sprintf("The seller cancelled your purchase of %s.", title)
	default:
		msg = fmt.Sprintf("You cancelled the sale of %s. Your listing is available again.", title)
	}

	userID := p.BuyerID
	if recipient == RoleSeller {
		userID = p.SellerID
	}
	return Notification{
		UserID:     userID,
		Type:       NotificationPurchaseCancelled,
		Title:      "Purchase cancelled",
		Message:    msg,
		ActionHref: hrefFor(recipient),
		RelatedID:  p.PropertyID,
	}
}

func ConfirmationNotice(p Participants, recipient Role) Notification {
	title := displayTitle(p.Title)
	msg := fmt.Sprintf("The seller accepted you as the buyer of %s. The inspection can begin.", title)
	userID := p.BuyerID
	if recipient == RoleSeller {
		msg = fmt.Sprintf("You accepted a buyer for %s. The inspection can begin.", title)
		userID = p.SellerID
	}
	return Notification{
		UserID:     userID,
		Type:       NotificationPurchaseConfirmed,
		Title:      "Purchase confirmed",
		Message:    msg,
		ActionHref: hrefFor(recipient),
		RelatedID:  p.PropertyID,
	}
}

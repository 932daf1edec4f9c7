package domain

import "github.com/dmehra2102/Property-Marketplace/pkg/docstore"

const (
	PropertiesCollection      = "properties"
	BuyerPropertiesCollection = "buyerProperties"
	InspectionStateID         = "state"
)

func SellerListingsCollection(sellerID string) string {
	return docstore.Path("users", sellerID, "listings")
}

func BuyerRecordID(buyerID, propertyID string) string {
	return buyerID + "_" + propertyID
}

func UserNotificationsCollection(userID string) string {
	return docstore.Path("users", userID, "notifications")
}

func InspectionCollection(propertyID string) string {
	return docstore.Path(PropertiesCollection, propertyID, "inspection")
}

func ChecklistCollection(propertyID string) string {
	return docstore.Path(PropertiesCollection, propertyID, "inspectionChecklist")
}

func IssuesCollection(propertyID string) string {
	return docstore.Path(PropertiesCollection, propertyID, "inspectionIssues")
}

func InspectionNotificationsCollection(propertyID string) string {
	return docstore.Path(PropertiesCollection, propertyID, "inspectionNotifications")
}

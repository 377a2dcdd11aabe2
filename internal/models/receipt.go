package models

import "time"

// ReceiptType classifies an expense
type ReceiptType string

const (
	ReceiptTypeFuel        ReceiptType = "FUEL"
	ReceiptTypeMaintenance ReceiptType = "MAINTENANCE"
	ReceiptTypeToll        ReceiptType = "TOLL"
	ReceiptTypeOther       ReceiptType = "OTHER"
)

// ReceiptStatus is the admin approval state of a receipt
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "PENDING"
	ReceiptStatusApproved ReceiptStatus = "APPROVED"
	ReceiptStatusRejected ReceiptStatus = "REJECTED"
)

// ReceiptEntry is an expense claim stored in the "receipts" collection
type ReceiptEntry struct {
	ID          string        `json:"id,omitempty" firestore:"-"`
	DriverID    string        `json:"driverId" firestore:"driverId"`
	JobID       string        `json:"jobId,omitempty" firestore:"jobId,omitempty"`
	Type        ReceiptType   `json:"type" firestore:"type"`
	Amount      float64       `json:"amount" firestore:"amount"`
	Description string        `json:"description" firestore:"description"`
	InvoiceURL  string        `json:"invoiceUrl" firestore:"invoiceUrl"`
	Date        time.Time     `json:"date" firestore:"date"`
	Status      ReceiptStatus `json:"status" firestore:"status"`
}

package amqp

import (
	"encoding/json"
	"time"
)

// InvoiceSyncMessage asks the worker to refresh one user's local mirror.
// It carries only the user id; the worker fetches the rows itself.
type InvoiceSyncMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceSyncMessage(userID, reason string) *InvoiceSyncMessage {
	return &InvoiceSyncMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *InvoiceSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceSyncMessageFromJSON(data []byte) (*InvoiceSyncMessage, error) {
	var msg InvoiceSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderMessage asks the worker to send one overdue-invoice reminder.
// The invoice and configuration ids are enough for the worker to load the
// rest from the mirror.
type ReminderMessage struct {
	InvoiceID string    `json:"invoice_id"`
	ConfigID  string    `json:"config_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReminderMessage(invoiceID, configID, userID string) *ReminderMessage {
	return &ReminderMessage{
		InvoiceID: invoiceID,
		ConfigID:  configID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

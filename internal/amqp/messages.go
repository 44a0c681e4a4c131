package amqp

import (
	"encoding/json"
	"time"
)

// CollectionChangedMessage tells other devices that the synchronized
// collection changed. It carries no records; receivers re-read the store.
type CollectionChangedMessage struct {
	Key       string    `json:"key"`
	Operation string    `json:"operation"`
	Count     int       `json:"count"`
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCollectionChangedMessage creates a message stamped with the current time
func NewCollectionChangedMessage(key, operation string, count int, origin string) *CollectionChangedMessage {
	return &CollectionChangedMessage{
		Key:       key,
		Operation: operation,
		Count:     count,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CollectionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CollectionChangedMessageFromJSON creates a message from JSON bytes
func CollectionChangedMessageFromJSON(data []byte) (*CollectionChangedMessage, error) {
	var msg CollectionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

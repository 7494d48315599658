package mocks

// Message implements mqtt.Message for testing
type Message struct {
	payload []byte
	topic   string
}

// NewMessage creates a new mock MQTT message
func NewMessage(topic string, payload []byte) *Message {
	return &Message{
		payload: payload,
		topic:   topic,
	}
}

func (m *Message) Payload() []byte   { return m.payload }
func (m *Message) Topic() string     { return m.topic }
func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return 1 }
func (m *Message) Retained() bool    { return false }
func (m *Message) MessageID() uint16 { return 1 }
func (m *Message) Ack()              {} // No-op for testing

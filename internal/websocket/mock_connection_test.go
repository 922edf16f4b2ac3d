package websocket

import (
	"errors"
	"sync"
	"time"
)

// MockConnection is a mock implementation of the Connection interface for testing
type MockConnection struct {
	mu sync.Mutex

	WrittenMessages []MockMessage

	// reads blocks ReadMessage until a message is queued or the mock is closed
	reads chan MockMessage

	Closed        bool
	ReadDeadline  time.Time
	WriteDeadline time.Time
	PongHandler   func(string) error
	RemoteAddress string
	ReadLimit     int64
}

// MockMessage represents a message for mocking
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		reads:         make(chan MockMessage, 8),
		RemoteAddress: "127.0.0.1:8080",
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return errors.New("connection closed")
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	msg, ok := <-m.reads
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return msg.Type, msg.Data, msg.Err
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Closed {
		m.Closed = true
		close(m.reads)
	}
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RemoteAddress
}

// AddReadMessage queues a message to be returned by ReadMessage
func (m *MockConnection) AddReadMessage(messageType int, data []byte, err error) {
	m.reads <- MockMessage{Type: messageType, Data: data, Err: err}
}

// GetWrittenMessages returns all messages written to the connection
func (m *MockConnection) GetWrittenMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]MockMessage, len(m.WrittenMessages))
	copy(result, m.WrittenMessages)
	return result
}

func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

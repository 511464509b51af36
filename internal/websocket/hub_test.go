package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id string) *mockClient {
	return &mockClient{id: id, messages: make([][]byte, 0)}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func waitForMessages(t *testing.T, client *mockClient, count int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msgs := client.GetMessages()
		if len(msgs) >= count {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", count, len(client.GetMessages()))
	return nil
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newMockClient("c1")

	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	c1 := newMockClient("c1")
	c2 := newMockClient("c2")
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(ImportStarted(ImportProgressPayload{ImportID: "imp-1", AccountID: 7, Status: "parsing"}))

	msgs := waitForMessages(t, c1, 1)
	waitForMessages(t, c2, 1)

	var event Event
	require.NoError(t, json.Unmarshal(msgs[0], &event))
	assert.Equal(t, "import.started", event.Type)
	assert.Equal(t, EntityTypeImport, event.Entity)
}

func TestHub_BroadcastSkipsUnregistered(t *testing.T) {
	hub := NewHub()
	c1 := newMockClient("c1")
	c2 := newMockClient("c2")
	hub.Register(c1)
	hub.Register(c2)
	hub.Unregister(c2)

	hub.Broadcast(TransactionCreated(map[string]any{"id": 1}))

	waitForMessages(t, c1, 1)
	assert.Empty(t, c2.GetMessages())
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{ImportProgress(nil), "import.progress"},
		{ImportCompleted(nil), "import.completed"},
		{ImportFailed(nil), "import.failed"},
		{TransactionUpdated(nil), "transaction.updated"},
		{TransactionDeleted(nil), "transaction.deleted"},
		{AccountUpdated(nil), "account.updated"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.Type)
	}
}

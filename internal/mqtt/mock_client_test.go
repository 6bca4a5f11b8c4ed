package mqtt

import (
	"context"
	"sync"
)

type published struct {
	topic   string
	payload string
	retain  bool
}

// mockClient records publishes instead of talking to a broker.
type mockClient struct {
	mu        sync.Mutex
	connected bool
	failTopic string
	err       error
	messages  []published
}

func newMockClient() *mockClient { return &mockClient{connected: true} }

func (m *mockClient) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockClient) Publish(ctx context.Context, topic, payload string) error {
	return m.PublishWithRetain(ctx, topic, payload, false)
}

func (m *mockClient) PublishWithRetain(_ context.Context, topic, payload string, retain bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil && (m.failTopic == "" || m.failTopic == topic) {
		return m.err
	}
	m.messages = append(m.messages, published{topic: topic, payload: payload, retain: retain})
	return nil
}

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *mockClient) snapshot() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.messages...)
}

package notifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	name string
	sent []Message
	err  error
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	n := &mockNotifier{name: "mock"}

	require.NoError(t, r.Register(n))
	assert.Error(t, r.Register(&mockNotifier{name: "mock"}), "duplicate registration should fail")

	got, err := r.Get("mock")
	require.NoError(t, err)
	assert.Same(t, n, got)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryNotifyAllCollectsErrors(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", err: errors.New("down")}
	require.NoError(t, r.Register(ok))
	require.NoError(t, r.Register(bad))

	errs := r.NotifyAll(Message{Title: "t", Content: "c"})

	require.Len(t, errs, 1)
	assert.Contains(t, errs, "bad")
	require.Len(t, ok.sent, 1)
	assert.Equal(t, "t", ok.sent[0].Title)
}

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPublisher struct {
	published []*nats.Msg
	err       error
}

func (m *mockPublisher) PublishMsg(msg *nats.Msg) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

func TestNATSNotifier_Publishes(t *testing.T) {
	pub := &mockPublisher{}
	n := newNATSNotifier(pub, "evt.ziva.credentials.v1", "zivactl", zap.NewNop())

	ev := New(TypeCredentialsUpdated, "login")
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Len(t, pub.published, 1)

	msg := pub.published[0]
	assert.Equal(t, "evt.ziva.credentials.v1", msg.Subject)
	assert.Equal(t, TypeCredentialsUpdated, msg.Header.Get("event_type"))
	assert.Equal(t, ev.ID.String(), msg.Header.Get("event_id"))
	assert.Equal(t, "zivactl", msg.Header.Get("service"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "login", decoded.Operation)
	assert.Equal(t, "zivactl", decoded.Service)
}

func TestNATSNotifier_PublishError(t *testing.T) {
	pub := &mockPublisher{err: nats.ErrConnectionClosed}
	n := newNATSNotifier(pub, "evt.test", "svc", nil)

	err := n.Notify(context.Background(), New(TypeCredentialsCleared, "delete_user"))
	assert.True(t, errors.Is(err, nats.ErrConnectionClosed))
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.Notify(context.Background(), New(TypeCredentialsUpdated, "x")))
}

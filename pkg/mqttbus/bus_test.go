package mqttbus

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type publishCall struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, publishCall{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestBus_Fire(t *testing.T) {
	pub := &mockPublisher{}
	bus := NewBus(pub, "box-1", 1)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bus.now = func() time.Time { return fixed }

	bus.Fire("terncy_pressed", map[string]any{"source": "btn-1", "times": 3})

	if len(pub.calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(pub.calls))
	}
	call := pub.calls[0]
	if call.Topic != "terncy/box-1/events/terncy_pressed" {
		t.Errorf("topic = %q", call.Topic)
	}
	if call.QoS != 1 || call.Retained {
		t.Errorf("qos = %d retained = %v, want 1 false", call.QoS, call.Retained)
	}

	var env Envelope
	if err := json.Unmarshal(call.Payload, &env); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if env.Event != "terncy_pressed" {
		t.Errorf("envelope event = %q", env.Event)
	}
	if env.MessageID == "" {
		t.Error("envelope message id empty")
	}
	if !env.Timestamp.Equal(fixed) {
		t.Errorf("envelope timestamp = %v, want %v", env.Timestamp, fixed)
	}
	if env.Data["source"] != "btn-1" {
		t.Errorf("envelope data = %v", env.Data)
	}
}

func TestBus_FireUniqueMessageIDs(t *testing.T) {
	pub := &mockPublisher{}
	bus := NewBus(pub, "box-1", 0)

	bus.Fire("terncy_rotation", nil)
	bus.Fire("terncy_rotation", nil)

	var first, second Envelope
	if err := json.Unmarshal(pub.calls[0].Payload, &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(pub.calls[1].Payload, &second); err != nil {
		t.Fatal(err)
	}
	if first.MessageID == second.MessageID {
		t.Error("message ids must differ between deliveries")
	}
}

func TestBus_FirePublishFailureLogged(t *testing.T) {
	pub := &mockPublisher{err: errors.New("mqttbus: publish failed")}
	logger := &recordingLogger{}
	bus := NewBus(pub, "box-1", 1)
	bus.SetLogger(logger)

	// Must not panic or propagate.
	bus.Fire("terncy_pressed", nil)

	if len(logger.warns) != 1 {
		t.Errorf("logged warnings = %d, want 1", len(logger.warns))
	}
}

package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 10)
	defer unsub()

	b.Emit(KindContactsUpdated, 3)

	select {
	case evt := <-ch:
		if evt.Kind != KindContactsUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, KindContactsUpdated)
		}
		if evt.ID == "" {
			t.Error("event id is empty")
		}
		if evt.Payload.(int) != 3 {
			t.Errorf("payload = %v, want 3", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("realtime.", 10)
	defer unsub()

	b.Emit(KindSendAck, nil)
	b.Emit(KindRealtimeMessage, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindRealtimeMessage {
			t.Errorf("got kind %q, want %s", evt.Kind, KindRealtimeMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 10)
	unsub()

	b.Emit(KindSendFailed, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 1)
	defer unsub()

	b.Emit(KindMessagesUpdated, "one")
	b.Emit(KindMessagesUpdated, "two")

	evt := <-ch
	if evt.Payload != "one" {
		t.Errorf("got %v, want one", evt.Payload)
	}
}

func TestNilBusIsInert(t *testing.T) {
	var b *Bus
	b.Emit(KindSendAck, nil)
	b.Publish(Event{Kind: KindSendAck})
}

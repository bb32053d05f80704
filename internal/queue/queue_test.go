package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	want := Message{Type: "attendanceUpdate", Room: "class_5", Body: json.RawMessage(`{"total":2}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	select {
	case got := <-out:
		if got.Type != want.Type || got.Room != want.Room || string(got.Body) != string(want.Body) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishRespectsCancellation(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	// Fill the buffer so the next publish blocks.
	if err := q.Publish(ctx, Message{Type: "classMessage", Room: "class_1"}); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	cancel()
	if err := q.Publish(ctx, Message{Type: "classMessage", Room: "class_1"}); err == nil {
		t.Error("Publish() on cancelled context should fail")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	cancel()
	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestRedisQueueDefaultsChannel(t *testing.T) {
	q := NewRedisQueue(nil, "")
	if q.channel != "schoolattend:events" {
		t.Errorf("channel = %q, want schoolattend:events", q.channel)
	}
}

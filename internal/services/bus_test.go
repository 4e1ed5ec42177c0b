package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/realtime"
)

func TestLocalBusForwardsInPublishOrder(t *testing.T) {
	bus := NewLocalBus()
	var got []realtime.TaskUpdate
	if err := bus.StartForwarder(context.Background(), func(m realtime.TaskUpdate) {
		got = append(got, m)
	}); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	taskID := uuid.New()
	companyID := uuid.New()
	for _, progress := range []int{10, 50, 100} {
		env := realtime.NewTaskUpdate(taskID, companyID, progress, "in_progress", nil)
		if err := bus.Publish(context.Background(), env); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	if len(got) != 3 {
		t.Fatalf("forwarded: want=3 got=%d", len(got))
	}
	for i, want := range []int{10, 50, 100} {
		if got[i].Progress != want {
			t.Fatalf("message %d progress: want=%d got=%d", i, want, got[i].Progress)
		}
	}
}

func TestLocalBusPublishWithoutForwarderIsSafe(t *testing.T) {
	bus := NewLocalBus()
	env := realtime.NewTaskUpdate(uuid.New(), uuid.New(), 5, "in_progress", nil)
	if err := bus.Publish(context.Background(), env); err != nil {
		t.Fatalf("Publish before StartForwarder: %v", err)
	}
}

package updates_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainstorm-api/internal/domain/updates"
)

func TestBroker_PublishThenDrain(t *testing.T) {
	b := updates.NewBroker(4, time.Minute, zerolog.Nop())
	ctx := context.Background()

	b.Publish(ctx, updates.Update{ProjectID: "p1", RunID: "r1", Event: updates.EventRunCompleted})
	b.Publish(ctx, updates.Update{ProjectID: "p2", RunID: "r2", Event: updates.EventRunCompleted})

	got := b.Drain("p1")
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RunID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	assert.Empty(t, b.Drain("p1"), "drain consumes pending updates")
	assert.Len(t, b.Drain("p2"), 1)
	assert.Equal(t, 0, b.Projects(), "idle projects are released")
}

func TestBroker_BoundedBuffer(t *testing.T) {
	b := updates.NewBroker(3, time.Minute, zerolog.Nop())
	for i := 0; i < 5; i++ {
		b.Publish(context.Background(), updates.Update{ProjectID: "p", RunID: fmt.Sprintf("r%d", i)})
	}

	got := b.Drain("p")
	require.Len(t, got, 3)
	assert.Equal(t, "r2", got[0].RunID)
	assert.Equal(t, "r4", got[2].RunID)
}

func TestBroker_ExpiryCheckedOnAccess(t *testing.T) {
	now := time.Unix(1000, 0)
	b := updates.NewBroker(8, time.Minute, zerolog.Nop())
	b.SetClock(func() time.Time { return now })

	b.Publish(context.Background(), updates.Update{ProjectID: "p", RunID: "old"})
	now = now.Add(2 * time.Minute)

	assert.Empty(t, b.Drain("p"))
	assert.Equal(t, 0, b.Projects())
}

func TestBroker_SubscribeReceivesBacklogAndLiveUpdates(t *testing.T) {
	b := updates.NewBroker(8, time.Minute, zerolog.Nop())
	ctx := context.Background()
	b.Publish(ctx, updates.Update{ProjectID: "p", RunID: "backlog"})

	sub := b.Subscribe("p")
	defer sub.Close()

	b.Publish(ctx, updates.Update{ProjectID: "p", RunID: "live"})
	b.Publish(ctx, updates.Update{ProjectID: "other", RunID: "elsewhere"})

	first := receive(t, sub.C)
	second := receive(t, sub.C)
	assert.Equal(t, "backlog", first.RunID)
	assert.Equal(t, "live", second.RunID)

	select {
	case u := <-sub.C:
		t.Fatalf("unexpected update %s", u.RunID)
	default:
	}
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := updates.NewBroker(2, time.Minute, zerolog.Nop())
	sub := b.Subscribe("p")

	sub.Close()
	sub.Close()

	_, open := <-sub.C
	assert.False(t, open)
	assert.NotPanics(t, func() {
		b.Publish(context.Background(), updates.Update{ProjectID: "p"})
	})
}

func TestBroker_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := updates.NewBroker(1, time.Minute, zerolog.Nop())
	sub := b.Subscribe("p")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(context.Background(), updates.Update{ProjectID: "p"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func receive(t *testing.T, ch <-chan updates.Update) updates.Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return updates.Update{}
	}
}

func TestBroker_StreamedUpdatesAreNotQueuedAgain(t *testing.T) {
	b := updates.NewBroker(8, time.Minute, zerolog.Nop())
	ctx := context.Background()

	sub := b.Subscribe("p")
	b.Publish(ctx, updates.Update{ProjectID: "p", RunID: "streamed"})
	assert.Equal(t, "streamed", receive(t, sub.C).RunID)
	sub.Close()

	assert.Empty(t, b.Drain("p"))

	b.Publish(ctx, updates.Update{ProjectID: "p", RunID: "offline"})
	next := b.Subscribe("p")
	defer next.Close()
	assert.Equal(t, "offline", receive(t, next.C).RunID)
	select {
	case u := <-next.C:
		t.Fatalf("unexpected update %s", u.RunID)
	default:
	}
}

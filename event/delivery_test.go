// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"testing"
	"time"
)

// TestSubscriberDeliverNonBlocking verifies that subscriber.deliver does not
// block when the channel buffer is full
func TestSubscriberDeliverNonBlocking(t *testing.T) {
	const bufferSize = 5
	sub := newSubscriber(bufferSize)

	// Fill the buffer completely
	for i := range bufferSize {
		if !sub.deliver(NewEvent("test", i)) {
			t.Fatalf("unexpected drop on buffered deliver %d", i)
		}
	}

	// Deliver to the full buffer should return immediately without blocking.
	done := make(chan bool, 1)
	go func() {
		done <- sub.deliver(NewEvent("test", "overflow"))
	}()

	select {
	case delivered := <-done:
		if delivered {
			t.Fatal("expected overflow event to be dropped")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("deliver blocked on full channel buffer; expected non-blocking drop")
	}

	// Verify the original buffered events are still present
	for i := range bufferSize {
		select {
		case evt := <-sub.ch:
			if evt.Data != i {
				t.Fatalf("expected event %d, got %v", i, evt.Data)
			}
		default:
			t.Fatal("expected buffered event not found")
		}
	}

	// Verify no extra event was inserted (the overflow should have been dropped)
	select {
	case evt := <-sub.ch:
		t.Fatalf("unexpected extra event in channel: %v", evt)
	default:
	}
}

// TestSubscriberDeliverAfterClose verifies that delivering to a closed
// subscriber neither panics nor counts as a drop
func TestSubscriberDeliverAfterClose(t *testing.T) {
	sub := newSubscriber(5)
	sub.close()
	// Closing twice is a no-op
	sub.close()

	if !sub.deliver(NewEvent("test", "after-close")) {
		t.Fatal("deliver after close should not report a drop")
	}
	if _, ok := <-sub.ch; ok {
		t.Fatal("expected closed channel")
	}
}

func TestUnsubscribeUnknownSubscriber(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Stop()
	subId, _ := eb.Subscribe("test.unknown")
	// Unknown id and unknown type are both ignored
	eb.Unsubscribe("test.unknown", subId+1)
	eb.Unsubscribe("test.other", subId)
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if _, ok := eb.subscribers["test.unknown"][subId]; !ok {
		t.Fatal("subscriber should still be registered")
	}
}

package queue

import "testing"

func TestNew(t *testing.T) {
	q := New[[]byte]()
	if q.Length() != 0 {
		t.Errorf("Expected queue to be empty but it has %d items", q.Length())
	}
}

func TestPush(t *testing.T) {
	q := New[[]byte]()
	for i := 0; i < 10; i++ {
		q.Push([]byte{0x01, 0x02, 0x03, 0x04})
	}
	if q.Length() != 10 {
		t.Errorf("Pushed 10 items onto the queue but it only has %d items", q.Length())
	}
}

func TestPop(t *testing.T) {
	q := New[[]byte]()
	items := [][]byte{{0x00}, {0x11}, {0x22}, {0x33}, {0x44}}
	for _, item := range items {
		q.Push(item)
	}
	for i := 0; i < len(items); i++ {
		popped := q.Pop()
		if string(popped) != string(items[i]) {
			t.Errorf("Popped %v but expected %v", popped, items[i])
		}
	}
}

func TestPushPopWithStringItems(t *testing.T) {
	q := New[string]()
	q.Push("group neighbor1,neighbor2")
	q.Push("peer neighbor1 announce 192.0.2.0/24")
	if q.Length() != 2 {
		t.Errorf("expected 2 items, got %d", q.Length())
	}
	if got := q.Pop(); got != "group neighbor1,neighbor2" {
		t.Errorf("got %q", got)
	}
}

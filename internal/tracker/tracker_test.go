package tracker

import "testing"

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestToggleMarksRead(t *testing.T) {
	tr := newTestTracker(t)

	read, err := tr.Toggle("Genesis", 1)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !read {
		t.Error("Expected first toggle to mark chapter read")
	}

	status, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !IsRead(status, "Genesis", 1) {
		t.Error("Expected Genesis 1 to be read")
	}
	if IsRead(status, "Genesis", 2) {
		t.Error("Expected Genesis 2 to be unread")
	}
}

func TestDoubleToggleRoundTrip(t *testing.T) {
	tr := newTestTracker(t)

	if _, err := tr.Toggle("Exodus", 3); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	read, err := tr.Toggle("Exodus", 3)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if read {
		t.Error("Expected second toggle to mark chapter unread")
	}

	status, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if IsRead(status, "Exodus", 3) {
		t.Error("Expected Exodus 3 to be unread after double toggle")
	}
	if _, ok := status["Exodus"]; ok {
		t.Error("Expected no entry for a book with no read chapters")
	}
}

func TestSnapshotGroupsByBook(t *testing.T) {
	tr := newTestTracker(t)

	for _, c := range []int{3, 1, 2} {
		if _, err := tr.Toggle("Psalms", c); err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
	}
	if _, err := tr.Toggle("1 John", 5); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	status, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("Expected 2 books in snapshot, got %d", len(status))
	}

	chapters := ReadChapters(status, "Psalms")
	if len(chapters) != 3 || chapters[0] != 1 || chapters[1] != 2 || chapters[2] != 3 {
		t.Errorf("Expected sorted chapters [1 2 3], got %v", chapters)
	}
	if !IsRead(status, "1 John", 5) {
		t.Error("Expected 1 John 5 to be read")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	tr := newTestTracker(t)

	status, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(status) != 0 {
		t.Errorf("Expected empty snapshot, got %d books", len(status))
	}
}

func TestIsReadNilStatus(t *testing.T) {
	if IsRead(nil, "Genesis", 1) {
		t.Error("Expected unread for nil status")
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("Expected error for on-disk mode without a directory")
	}
}

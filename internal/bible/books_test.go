package bible

import "testing"

func TestBooks_CanonSize(t *testing.T) {
	if len(Books) != 66 {
		t.Errorf("Expected 66 books, got %d", len(Books))
	}
}

func TestFind_ExactAndFuzzy(t *testing.T) {
	b, err := Find("genesis")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if b.Name != "Genesis" || b.Chapters != 50 {
		t.Errorf("Unexpected book: %+v", b)
	}

	b, err = Find("1cor")
	if err != nil {
		t.Fatalf("Fuzzy find failed: %v", err)
	}
	if b.Name != "1 Corinthians" {
		t.Errorf("Expected 1 Corinthians, got %s", b.Name)
	}

	if _, err := Find("zzzz"); err == nil {
		t.Error("Expected error for unknown book, got nil")
	}
}

func TestNext_CrossesBookBoundary(t *testing.T) {
	gen, _ := Find("Genesis")

	b, ch, ok := Next(gen, 50)
	if !ok || b.Name != "Exodus" || ch != 1 {
		t.Errorf("Expected Exodus 1, got %s %d ok=%v", b.Name, ch, ok)
	}

	rev, _ := Find("Revelation")
	if _, _, ok := Next(rev, 22); ok {
		t.Error("Expected no chapter after Revelation 22")
	}
}

func TestPrevious_CrossesBookBoundary(t *testing.T) {
	ex, _ := Find("Exodus")

	b, ch, ok := Previous(ex, 1)
	if !ok || b.Name != "Genesis" || ch != 50 {
		t.Errorf("Expected Genesis 50, got %s %d ok=%v", b.Name, ch, ok)
	}

	gen, _ := Find("Genesis")
	if _, _, ok := Previous(gen, 1); ok {
		t.Error("Expected no chapter before Genesis 1")
	}
}

func TestLanguageByTestament(t *testing.T) {
	for _, b := range Books {
		want := Hebrew
		if b.Testament == NewTestament {
			want = Greek
		}
		if b.Language != want {
			t.Errorf("%s: expected language %s, got %s", b.Name, want, b.Language)
		}
	}
}

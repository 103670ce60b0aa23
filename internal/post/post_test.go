package post

import "testing"

func TestCloneDoesNotShareMessageIDs(t *testing.T) {
	orig := Post{
		ID:        "1",
		Text:      "hello",
		MessageID: StringPtr("m1"),
		Images:    []Image{{URL: "https://example.com/a.jpg", MessageID: StringPtr("m2")}},
	}

	cp := orig.Clone()
	*cp.MessageID = "changed"
	*cp.Images[0].MessageID = "changed"
	cp.Images[0].URL = "changed"

	if *orig.MessageID != "m1" {
		t.Fatalf("text message id mutated through clone: %q", *orig.MessageID)
	}
	if *orig.Images[0].MessageID != "m2" {
		t.Fatalf("image message id mutated through clone: %q", *orig.Images[0].MessageID)
	}
	if orig.Images[0].URL != "https://example.com/a.jpg" {
		t.Fatalf("image url mutated through clone: %q", orig.Images[0].URL)
	}
}

func TestCloneKeepsNilImages(t *testing.T) {
	cp := Post{ID: "1"}.Clone()
	if cp.Images != nil {
		t.Fatalf("expected nil images, got %v", cp.Images)
	}
	if cp.MessageID != nil {
		t.Fatal("expected nil message id")
	}
}

func TestMessageIDs(t *testing.T) {
	p := Post{
		MessageID: StringPtr("10"),
		Images: []Image{
			{URL: "a", MessageID: StringPtr("11")},
			{URL: "b"},
			{URL: "c", MessageID: StringPtr("13")},
		},
	}
	got := p.MessageIDs()
	want := []string{"10", "11", "13"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDeref(t *testing.T) {
	if Deref(nil) != "" {
		t.Error("Deref(nil) should be empty")
	}
	if Deref(StringPtr("x")) != "x" {
		t.Error("Deref should return pointed value")
	}
}

func TestSent(t *testing.T) {
	if (Post{}).Sent() {
		t.Error("zero post should not be sent")
	}
	if !(Post{MessageID: StringPtr("")}).Sent() {
		t.Error("post with empty-but-present message id counts as sent")
	}
}

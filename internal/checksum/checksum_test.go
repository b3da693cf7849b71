package checksum

import "testing"

func TestNode(t *testing.T) {
	a := Node("title", "body")
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	if a != Node("title", "body") {
		t.Error("checksum is not stable")
	}
	if a == Node("titleb", "ody") {
		t.Error("field boundary must be part of the checksum")
	}
}

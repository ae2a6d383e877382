package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Fatalf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Fatal("different inputs share a digest")
	}
}

func TestETagQuoted(t *testing.T) {
	tag := ETag([]byte("x"))
	if tag[0] != '"' || tag[len(tag)-1] != '"' {
		t.Fatalf("etag not quoted: %s", tag)
	}
	if tag[1:len(tag)-1] != Sum([]byte("x")) {
		t.Fatalf("etag body mismatch: %s", tag)
	}
}

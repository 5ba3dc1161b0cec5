package media

import (
	"strings"
	"testing"
	"time"
)

func TestObjectKeyLayout(t *testing.T) {
	key := ObjectKey("avatars", ".png")

	if !strings.HasPrefix(key, "avatars/") {
		t.Errorf("key %q does not start with the prefix", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("key %q does not keep the extension", key)
	}

	datePart := time.Now().UTC().Format("2006/01/02")
	if !strings.Contains(key, datePart) {
		t.Errorf("key %q is not partitioned by date %q", key, datePart)
	}
}

func TestObjectKeyUnique(t *testing.T) {
	if ObjectKey("avatars", ".jpg") == ObjectKey("avatars", ".jpg") {
		t.Error("two keys for the same prefix collided")
	}
}

package attachid

import (
	"strings"
	"sync"
	"testing"
)

func TestNewFormat(t *testing.T) {
	gen := NewGenerator()
	id := gen.New()

	if !strings.HasPrefix(id, "att_") {
		t.Fatalf("expected att_ prefix, got %q", id)
	}
	if id != strings.ToLower(id) {
		t.Fatalf("expected lowercase id, got %q", id)
	}
	if !IsValid(id) {
		t.Fatalf("generated id %q does not validate", id)
	}
}

func TestParseRejectsOtherPrefixes(t *testing.T) {
	if IsValid("med_01h455vb4pex5vsknk084sn02q") {
		t.Fatal("expected id with foreign prefix to be invalid")
	}
	if IsValid("not-an-id") {
		t.Fatal("expected garbage to be invalid")
	}
}

func TestConcurrentUniqueness(t *testing.T) {
	const workers = 50
	const perWorker = 20

	gen := NewGenerator()
	ids := make(chan string, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < perWorker; n++ {
				ids <- gen.New()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d ids, got %d", workers*perWorker, len(seen))
	}
}

package internal

import "testing"

func TestFastHash(t *testing.T) {
	a := FastHash("9 + 4 * 2")
	if a != FastHash("9 + 4 * 2") {
		t.Error("FastHash is not stable")
	}

	if a == FastHash("9 + 4 * 3") {
		t.Error("different inputs hashed to the same value")
	}

	if len(a) == 0 || len(a) > 16 {
		t.Errorf("unexpected hash length %d: %q", len(a), a)
	}
}

var mappingInputs = []string{
	"e:112233445566778899:223344556677889900",
	"u:🔔:223344556677889901",
	"n:pepe_wave:223344556677889902",
}

func BenchmarkFastHash(b *testing.B) {
	for i := 0; b.Loop(); i++ {
		_ = FastHash(mappingInputs[i%len(mappingInputs)])
	}
}

package segments

import (
	"math"
	"testing"
)

func TestEmbeddingCodecRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 0, 3.75, float32(math.Pi)}

	decoded := decodeEmbedding(encodeEmbedding(vec))
	if len(decoded) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %f, want %f", i, decoded[i], vec[i])
		}
	}
}

func TestEmbeddingCodecNil(t *testing.T) {
	if encodeEmbedding(nil) != nil {
		t.Error("encodeEmbedding(nil) should be nil")
	}
	if decodeEmbedding(nil) != nil {
		t.Error("decodeEmbedding(nil) should be nil")
	}
}

func TestDecodeEmbeddingRejectsTruncatedInput(t *testing.T) {
	raw := encodeEmbedding([]float32{1, 2, 3})
	if got := decodeEmbedding(raw[:len(raw)-1]); got != nil {
		t.Errorf("truncated input decoded to %v, want nil", got)
	}
}

func TestEncodeEmbeddingLength(t *testing.T) {
	raw := encodeEmbedding(make([]float32, 768))
	if len(raw) != 768*4 {
		t.Errorf("encoded length = %d, want %d", len(raw), 768*4)
	}
}

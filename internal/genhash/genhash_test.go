package genhash

import (
	"encoding/hex"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestSum_Unkeyed(t *testing.T) {
	t.Parallel()

	// BLAKE2b-256 of the empty string.
	assert.Equal(t, "digest",
		"0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		hex.EncodeToString(Sum(nil, nil, Size)))
}

func TestSum_Keyed(t *testing.T) {
	t.Parallel()

	key := []byte("ayellowsubmarine")

	a := Sum([]byte("message"), key, Size)
	b := Sum([]byte("message"), nil, Size)

	if hex.EncodeToString(a) == hex.EncodeToString(b) {
		t.Fatal("keyed and unkeyed digests are equal")
	}

	assert.Equal(t, "deterministic", a, Sum([]byte("message"), key, Size))
}

func TestSum_Sizes(t *testing.T) {
	t.Parallel()

	for _, size := range []int{MinSize, Size, MaxSize} {
		assert.Equal(t, "digest size", size, len(Sum([]byte("message"), nil, size)))
	}
}

func TestSum_InvalidSize(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("should have panicked")
		}
	}()

	_ = Sum(nil, nil, MaxSize+1)
}

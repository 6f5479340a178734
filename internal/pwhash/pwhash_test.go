package pwhash

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codahale/gubbins/assert"
)

// Small costs keep the tests fast; the format and logic don't depend on them.
const (
	testOps = 1
	testMem = 64 * 1024
)

//nolint:gochecknoglobals // test fixture
var salt = []byte("ayellowsubmarine")

func TestStr(t *testing.T) {
	t.Parallel()

	str := Str([]byte("handsome"), salt, testOps, testMem)

	assert.Equal(t, "prefix", true, strings.HasPrefix(str, "$argon2id$v=19$m=64,t=1,p=1$"))
	assert.Equal(t, "fits", true, len(str) < StrSize)
	assert.Equal(t, "valid", true, Valid(str))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	str := Str([]byte("handsome"), salt, testOps, testMem)

	assert.Equal(t, "right password", true, Verify(str, []byte("handsome")))
	assert.Equal(t, "wrong password", false, Verify(str, []byte("toothsome")))
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, str string
	}{
		{name: "empty", str: ""},
		{name: "wrong algorithm", str: "$argon2i$v=19$m=64,t=1,p=1$YXllbGxvd3N1Ym1hcmluZQ$aGFzaGhhc2hoYXNoaGFzaA"},
		{name: "missing hash", str: "$argon2id$v=19$m=64,t=1,p=1$YXllbGxvd3N1Ym1hcmluZQ"},
		{name: "bad params", str: "$argon2id$v=19$m=x,t=1,p=1$YXllbGxvd3N1Ym1hcmluZQ$aGFzaGhhc2hoYXNoaGFzaA"},
		{name: "zero time", str: "$argon2id$v=19$m=64,t=0,p=1$YXllbGxvd3N1Ym1hcmluZQ$aGFzaGhhc2hoYXNoaGFzaA"},
		{name: "huge memory", str: "$argon2id$v=19$m=99999999,t=1,p=1$YXllbGxvd3N1Ym1hcmluZQ$aGFzaGhhc2hoYXNoaGFzaA"},
		{name: "bad salt", str: "$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaGhhc2hoYXNoaGFzaA"},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, "valid", false, Valid(test.str))
			assert.Equal(t, "verified", false, Verify(test.str, []byte("handsome")))
		})
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	a := Derive([]byte("handsome"), salt, testOps, testMem, 32)
	b := Derive([]byte("handsome"), salt, testOps, testMem, 32)
	c := Derive([]byte("handsome"), []byte("agreensubmarine!"), testOps, testMem, 32)

	assert.Equal(t, "size", 32, len(a))
	assert.Equal(t, "deterministic", a, b)
	assert.Equal(t, "salted", false, bytes.Equal(a, c))
}

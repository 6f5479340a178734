package shield

import (
	"errors"
	"strings"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestNewPassword_Encodings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		enc  Encoding
		want []byte
	}{
		{name: "utf-8", text: "naïve", enc: UTF8, want: []byte("na\xc3\xafve")},
		{name: "utf-16be", text: "hé", enc: UTF16BigEndian, want: []byte{0, 'h', 0, 0xe9}},
		{name: "utf-16le", text: "hé", enc: UTF16LittleEndian, want: []byte{'h', 0, 0xe9, 0}},
		{name: "ascii", text: "plain", enc: ASCII, want: []byte("plain")},
		{name: "latin-1", text: "naïve", enc: ISOLatin1, want: []byte("na\xefve")},
		{name: "windows-1252", text: "€5", enc: Windows1252, want: []byte("\x805")},
		{name: "mac roman", text: "é", enc: MacRoman, want: []byte{0x8e}},
		{name: "empty", text: "", enc: UTF8, want: []byte{}},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewPassword(test.text, test.enc)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			assert.Equal(t, "encoded password", test.want, p.Bytes())
		})
	}
}

func TestNewPassword_Unrepresentable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		enc  Encoding
	}{
		{name: "ascii", text: "naïve", enc: ASCII},
		{name: "latin-1", text: "€", enc: ISOLatin1},
		{name: "mac roman", text: "日本", enc: MacRoman},
		{name: "invalid utf-8", text: "\xff", enc: UTF8},
		{name: "unknown encoding", text: "yes", enc: Encoding(99)},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewPassword(test.text, test.enc); !errors.Is(err, ErrUnrepresentable) {
				t.Fatalf("expected ErrUnrepresentable but was %v", err)
			}
		})
	}
}

func TestNewPassword_TooLong(t *testing.T) {
	t.Parallel()

	if _, err := NewPassword(strings.Repeat("a", MaxPasswordSize+1), UTF8); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize but was %v", err)
	}
}

func TestNewPasswordFromBytes(t *testing.T) {
	t.Parallel()

	b := []byte("hunter2")

	p, err := NewPasswordFromBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	assert.Equal(t, "source zeroed", make([]byte, 7), b)
	assert.Equal(t, "password", []byte("hunter2"), p.Bytes())
}

func TestPassword_FingerprintEqual(t *testing.T) {
	t.Parallel()

	a := mustPassword(t, "hunter2")
	defer a.Close()

	b := mustPassword(t, "hunter2")
	defer b.Close()

	c := mustPassword(t, "hunter22")
	defer c.Close()

	assert.Equal(t, "same password", true, a.FingerprintEqual(b))
	assert.Equal(t, "different lengths", false, a.FingerprintEqual(c))
}

func TestPassword_Hash(t *testing.T) {
	t.Parallel()

	p := mustPassword(t, "correct horse battery staple")
	defer p.Close()

	hashed, err := p.Hash(ComplexityMedium, MemoryMedium)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "prefix", true, strings.HasPrefix(hashed.String(), "$argon2id$v=19$m=65536,t=2,p=1$"))
	assert.Equal(t, "stored size", HashedPasswordSize, len(hashed.Bytes()))
	assert.Equal(t, "right password", true, hashed.Verify(p))

	wrong := mustPassword(t, "correct horse battery stapler")
	defer wrong.Close()

	assert.Equal(t, "wrong password", false, hashed.Verify(wrong))

	// Round trip through the padded stored form.
	restored, err := NewHashedPassword(hashed.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "restored", hashed.String(), restored.String())
	assert.Equal(t, "restored verifies", true, restored.Verify(p))
}

func TestPassword_Hash_InvalidParameters(t *testing.T) {
	t.Parallel()

	p := mustPassword(t, "yes")
	defer p.Close()

	if _, err := p.Hash(Complexity(0), MemoryMedium); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters but was %v", err)
	}

	if _, err := p.Hash(ComplexityMedium, Memory(9)); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters but was %v", err)
	}
}

func TestNewHashedPassword_Invalid(t *testing.T) {
	t.Parallel()

	valid := "$argon2id$v=19$m=65536,t=2,p=1$YXllbGxvd3N1Ym1hcmluZQ$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"

	tests := []struct {
		name string
		b    []byte
	}{
		{name: "empty", b: nil},
		{name: "too long", b: []byte(valid + strings.Repeat("\x00", HashedPasswordSize))},
		{name: "not argon2id", b: []byte(strings.Replace(valid, "argon2id", "argon2i", 1))},
		{name: "space", b: []byte(valid[:20] + " " + valid[21:])},
		{name: "junk after nul", b: []byte(valid + "\x00x")},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewHashedPassword(test.b); !errors.Is(err, ErrInvalidHashedPassword) {
				t.Fatalf("expected ErrInvalidHashedPassword but was %v", err)
			}
		})
	}

	var h HashedPassword
	if err := h.UnmarshalText([]byte(valid)); err != nil {
		t.Fatal(err)
	}

	text, err := h.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "text", valid, string(text))
}

func mustPassword(t *testing.T, s string) *Password {
	t.Helper()

	p, err := NewPassword(s, UTF8)
	if err != nil {
		t.Fatal(err)
	}

	return p
}

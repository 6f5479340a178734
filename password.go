package shield

import (
	"bytes"
	"encoding"
	"fmt"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/codahale/shield/internal/pwhash"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// MaxPasswordSize is the largest encoded password, in bytes.
const MaxPasswordSize = 4096

// Encoding is the byte encoding a password's text is converted to before hashing. The same text in
// two encodings produces two unrelated hashes.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16BigEndian
	UTF16LittleEndian
	ASCII
	ISOLatin1
	Windows1252
	MacRoman
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF-8"
	case UTF16BigEndian:
		return "UTF-16BE"
	case UTF16LittleEndian:
		return "UTF-16LE"
	case ASCII:
		return "US-ASCII"
	case ISOLatin1:
		return "ISO-8859-1"
	case Windows1252:
		return "Windows-1252"
	case MacRoman:
		return "Macintosh"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// encode returns the text in the encoding, or an error if any character has no representation.
func (e Encoding) encode(text string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrUnrepresentable)
	}

	var enc interface{ Bytes([]byte) ([]byte, error) }

	switch e {
	case UTF8:
		return []byte(text), nil
	case ASCII:
		for i := 0; i < len(text); i++ {
			if text[i] >= utf8.RuneSelf {
				return nil, fmt.Errorf("%w: non-ASCII character in %s", ErrUnrepresentable, e)
			}
		}

		return []byte(text), nil
	case UTF16BigEndian:
		enc = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	case UTF16LittleEndian:
		enc = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	case ISOLatin1:
		enc = charmap.ISO8859_1.NewEncoder()
	case Windows1252:
		enc = charmap.Windows1252.NewEncoder()
	case MacRoman:
		enc = charmap.Macintosh.NewEncoder()
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrUnrepresentable, int(e))
	}

	src := []byte(text)
	defer memguard.WipeBytes(src)

	b, err := enc.Bytes(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnrepresentable, e, err)
	}

	return b, nil
}

// Complexity is the time cost class of password hashing.
type Complexity int

const (
	ComplexityMedium   Complexity = iota + 1 // 2 passes, suitable for interactive use
	ComplexityHigh                           // 3 passes
	ComplexityVeryHigh                       // 4 passes, suitable for highly sensitive data
)

func (c Complexity) ops() (uint32, error) {
	switch c {
	case ComplexityMedium:
		return 2, nil
	case ComplexityHigh:
		return 3, nil
	case ComplexityVeryHigh:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: complexity %d", ErrInvalidParameters, int(c))
	}
}

func complexityFromOps(ops uint32) (Complexity, error) {
	for _, c := range []Complexity{ComplexityMedium, ComplexityHigh, ComplexityVeryHigh} {
		if v, _ := c.ops(); v == ops {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: ops limit %d", ErrInvalidParameters, ops)
}

func (c Complexity) String() string {
	switch c {
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	case ComplexityVeryHigh:
		return "very-high"
	default:
		return fmt.Sprintf("Complexity(%d)", int(c))
	}
}

// Memory is the memory cost class of password hashing.
type Memory int

const (
	MemoryMedium   Memory = iota + 1 // 64 MiB
	MemoryHigh                       // 256 MiB
	MemoryVeryHigh                   // 1 GiB
)

func (m Memory) bytes() (uint32, error) {
	switch m {
	case MemoryMedium:
		return 64 << 20, nil
	case MemoryHigh:
		return 256 << 20, nil
	case MemoryVeryHigh:
		return 1 << 30, nil
	default:
		return 0, fmt.Errorf("%w: memory %d", ErrInvalidParameters, int(m))
	}
}

func memoryFromBytes(n uint32) (Memory, error) {
	for _, m := range []Memory{MemoryMedium, MemoryHigh, MemoryVeryHigh} {
		if v, _ := m.bytes(); v == n {
			return m, nil
		}
	}

	return 0, fmt.Errorf("%w: memory limit %d", ErrInvalidParameters, n)
}

func (m Memory) String() string {
	switch m {
	case MemoryMedium:
		return "medium"
	case MemoryHigh:
		return "high"
	case MemoryVeryHigh:
		return "very-high"
	default:
		return fmt.Sprintf("Memory(%d)", int(m))
	}
}

// costs validates the pair of cost classes and returns the Argon2id ops and memory limits.
func costs(c Complexity, m Memory) (ops, mem uint32, err error) {
	if ops, err = c.ops(); err != nil {
		return 0, 0, err
	}

	if mem, err = m.bytes(); err != nil {
		return 0, 0, err
	}

	return ops, mem, nil
}

type passwordBounds struct{}

func (passwordBounds) bounds() (int, int) { return 0, MaxPasswordSize }

// Password is a user's password. Passwords of different lengths can't be compared with Equal; use
// FingerprintEqual.
type Password struct {
	keyMaterial[passwordBounds]
}

// NewPassword encodes the text and moves it into a Password. Returns ErrUnrepresentable if the text
// can't be represented in the encoding, and ErrInvalidKeySize if the encoded text is longer than
// MaxPasswordSize.
//
// The encoded copy is zeroed, but the string itself can't be; prefer NewPasswordFromBytes when the
// password is already in a byte slice.
func NewPassword(text string, enc Encoding) (*Password, error) {
	b, err := enc.encode(text)
	if err != nil {
		return nil, err
	}

	return NewPasswordFromBytes(b)
}

// NewPasswordFromBytes moves already-encoded password bytes into a Password, zeroing b.
func NewPasswordFromBytes(b []byte) (*Password, error) {
	km, err := capture[passwordBounds](b)
	if err != nil {
		return nil, err
	}

	return &Password{km}, nil
}

// Hash returns a self-describing Argon2id hash of the password suitable for storage. Returns
// ErrInvalidParameters if either cost class is unknown.
func (p *Password) Hash(c Complexity, m Memory) (*HashedPassword, error) {
	ops, mem, err := costs(c, m)
	if err != nil {
		return nil, err
	}

	salt := GenerateSalt()
	defer salt.Close()

	var s string

	p.read(func(pw []byte) {
		salt.read(func(sb []byte) {
			s = pwhash.Str(pw, sb, ops, mem)
		})
	})

	return &HashedPassword{s: s}, nil
}

// HashedPasswordSize is the size of a stored HashedPassword, including NUL padding.
const HashedPasswordSize = pwhash.StrSize

// HashedPassword is a stored password hash in the PHC string format. It is not secret.
type HashedPassword struct {
	s string
}

// NewHashedPassword parses a stored password hash, either bare or NUL-padded to HashedPasswordSize.
// Returns ErrInvalidHashedPassword if it is not well-formed.
func NewHashedPassword(b []byte) (*HashedPassword, error) {
	if len(b) > HashedPasswordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidHashedPassword, len(b))
	}

	if i := bytes.IndexByte(b, 0); i >= 0 {
		// Everything after the first NUL must be NUL.
		if len(bytes.Trim(b[i:], "\x00")) != 0 {
			return nil, fmt.Errorf("%w: embedded NUL", ErrInvalidHashedPassword)
		}

		b = b[:i]
	}

	for _, c := range b {
		if c < 0x21 || c > 0x7e {
			return nil, fmt.Errorf("%w: non-printable character", ErrInvalidHashedPassword)
		}
	}

	s := string(b)
	if len(s) >= HashedPasswordSize || !pwhash.Valid(s) {
		return nil, ErrInvalidHashedPassword
	}

	return &HashedPassword{s: s}, nil
}

// Verify returns true if the password matches the hash. The comparison runs in constant time.
func (h *HashedPassword) Verify(p *Password) bool {
	var ok bool

	p.read(func(pw []byte) {
		ok = pwhash.Verify(h.s, pw)
	})

	return ok
}

// Bytes returns the hash NUL-padded to HashedPasswordSize bytes.
func (h *HashedPassword) Bytes() []byte {
	b := make([]byte, HashedPasswordSize)
	copy(b, h.s)

	return b
}

func (h *HashedPassword) String() string {
	return h.s
}

// MarshalText returns the hash without padding.
func (h *HashedPassword) MarshalText() ([]byte, error) {
	return []byte(h.s), nil
}

// UnmarshalText parses a stored hash into h.
func (h *HashedPassword) UnmarshalText(text []byte) error {
	parsed, err := NewHashedPassword(text)
	if err != nil {
		return err
	}

	*h = *parsed

	return nil
}

var (
	_ encoding.TextMarshaler   = &HashedPassword{}
	_ encoding.TextUnmarshaler = &HashedPassword{}
	_ fmt.Stringer             = &HashedPassword{}
)

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codahale/gubbins/assert"
	"github.com/codahale/shield"
	"github.com/codahale/shield/keychain"
	"github.com/codahale/shield/keychain/redisstore"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestArmorRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "armored")
	message := []byte("this is a message which needs armor")

	if err := writeOutput(path, true, message); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "armored output", "dGhpcyBpcyBhIG1lc3NhZ2Ugd2hpY2ggbmVlZHMgYXJtb3I=", string(raw))

	got, err := readInput(path, true)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(message, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plaintextPath := filepath.Join(dir, "plaintext")
	ciphertextPath := filepath.Join(dir, "ciphertext")
	decryptedPath := filepath.Join(dir, "decrypted")

	if err := os.WriteFile(plaintextPath, []byte("welcome to the jungle"), 0o600); err != nil {
		t.Fatal(err)
	}

	env := newEnvironment(&cli{Store: "file", StorePath: filepath.Join(dir, "keys")}, zerolog.Nop())

	enc := encryptCmd{Identity: "alice", Plaintext: plaintextPath, Ciphertext: ciphertextPath, Armor: true, Padding: 16}
	if err := enc.Run(env); err != nil {
		t.Fatal(err)
	}

	dec := decryptCmd{Identity: "alice", Ciphertext: ciphertextPath, Plaintext: decryptedPath, Armor: true, Padding: 16}
	if err := dec.Run(env); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(decryptedPath)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "decrypted", "welcome to the jungle", string(got))

	// A different identity can't decrypt it.
	dec.Identity = "bob"
	if err := dec.Run(env); !errors.Is(err, shield.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed but was %v", err)
	}
}

func TestForget(t *testing.T) {
	t.Parallel()

	env := newEnvironment(&cli{Store: "memory"}, zerolog.Nop())

	id, err := env.identity("carol")
	if err != nil {
		t.Fatal(err)
	}

	k, err := id.SecretKey(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer k.Close()

	cmd := forgetCmd{Identity: "carol"}
	if err := cmd.Run(env); err != nil {
		t.Fatal(err)
	}

	if _, err := env.store.Get(context.Background(), "carol.secret-key"); !errors.Is(err, keychain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound but was %v", err)
	}
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	env := newEnvironment(&cli{Store: "memory"}, zerolog.Nop())

	store, err := env.openStore()
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := store.(*keychain.MemoryStore); !ok {
		t.Errorf("expected a MemoryStore but was %T", store)
	}

	env = newEnvironment(&cli{Store: "file", StorePath: t.TempDir()}, zerolog.Nop())

	store, err = env.openStore()
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := store.(*keychain.FileStore); !ok {
		t.Errorf("expected a FileStore but was %T", store)
	}

	env = newEnvironment(&cli{Store: "redis", RedisAddr: "localhost:6379"}, zerolog.Nop())

	store, err = env.openStore()
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := store.(*redisstore.Store); !ok {
		t.Errorf("expected a redisstore.Store but was %T", store)
	}

	env = newEnvironment(&cli{Store: "floppy"}, zerolog.Nop())

	if _, err := env.openStore(); !errors.Is(err, errUnknownStore) {
		t.Fatalf("expected errUnknownStore but was %v", err)
	}
}

func TestParseCosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		complexity, memory string
		c                  shield.Complexity
		m                  shield.Memory
	}{
		{"medium", "medium", shield.ComplexityMedium, shield.MemoryMedium},
		{"high", "very-high", shield.ComplexityHigh, shield.MemoryVeryHigh},
		{"very-high", "high", shield.ComplexityVeryHigh, shield.MemoryHigh},
	}

	for _, test := range tests {
		test := test

		t.Run(test.complexity+"/"+test.memory, func(t *testing.T) {
			t.Parallel()

			c, m, err := parseCosts(test.complexity, test.memory)
			if err != nil {
				t.Fatal(err)
			}

			assert.Equal(t, "complexity", test.c, c)
			assert.Equal(t, "memory", test.m, m)
		})
	}

	if _, _, err := parseCosts("extreme", "medium"); !errors.Is(err, shield.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters but was %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)

	logger := newLogger(buf, false)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.Equal(t, "debug hidden", false, strings.Contains(buf.String(), "hidden"))
	assert.Equal(t, "info shown", true, strings.Contains(buf.String(), "shown"))

	buf.Reset()

	logger = newLogger(buf, true)
	logger.Debug().Msg("verbose")

	assert.Equal(t, "debug shown", true, strings.Contains(buf.String(), "verbose"))
}

//nolint:paralleltest // wipes every live key
func TestPurge(t *testing.T) {
	env := newEnvironment(&cli{Store: "memory"}, zerolog.Nop())

	id, err := env.identity("dave")
	if err != nil {
		t.Fatal(err)
	}

	k, err := id.SecretKey(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer k.Close()

	purge()

	assert.Equal(t, "key after purge", make([]byte, shield.SecretKeySize), k.Bytes())
}

package kx

import (
	"errors"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestSuites(t *testing.T) {
	t.Parallel()

	for _, suite := range []Suite{X25519, Ristretto255} {
		suite := suite

		t.Run(suite.Name(), func(t *testing.T) {
			t.Parallel()

			skC, skS := make([]byte, SecretKeySize), make([]byte, SecretKeySize)
			pkC := suite.GenerateKeyPair(skC)
			pkS := suite.GenerateKeyPair(skS)

			assert.Equal(t, "public key size", PublicKeySize, len(pkC))

			client, err := suite.SessionKeys(skC, pkS, pkC, pkS)
			if err != nil {
				t.Fatal(err)
			}

			server, err := suite.SessionKeys(skS, pkC, pkC, pkS)
			if err != nil {
				t.Fatal(err)
			}

			assert.Equal(t, "session key material", client, server)
			assert.Equal(t, "session key material size", 2*SessionKeySize, len(client))
		})
	}
}

func TestSuites_InvalidPeerKey(t *testing.T) {
	t.Parallel()

	for _, suite := range []Suite{X25519, Ristretto255} {
		suite := suite

		t.Run(suite.Name(), func(t *testing.T) {
			t.Parallel()

			sk := make([]byte, SecretKeySize)
			pk := suite.GenerateKeyPair(sk)

			// The all-zero point is low order for X25519 and the identity for ristretto255.
			zero := make([]byte, PublicKeySize)

			if _, err := suite.SessionKeys(sk, zero, pk, zero); !errors.Is(err, ErrInvalidPeerKey) {
				t.Fatalf("expected ErrInvalidPeerKey but was %v", err)
			}

			if _, err := suite.SessionKeys(sk, zero[:16], pk, zero); !errors.Is(err, ErrInvalidPeerKey) {
				t.Fatalf("expected ErrInvalidPeerKey but was %v", err)
			}
		})
	}
}

func TestRistretto255_NonCanonicalPeerKey(t *testing.T) {
	t.Parallel()

	sk := make([]byte, SecretKeySize)
	pk := Ristretto255.GenerateKeyPair(sk)

	// Field elements must be reduced; all 0xff bytes are not.
	bad := make([]byte, PublicKeySize)
	for i := range bad {
		bad[i] = 0xff
	}

	if _, err := Ristretto255.SessionKeys(sk, bad, pk, bad); !errors.Is(err, ErrInvalidPeerKey) {
		t.Fatalf("expected ErrInvalidPeerKey but was %v", err)
	}
}

func BenchmarkX25519SessionKeys(b *testing.B) {
	skC, skS := make([]byte, SecretKeySize), make([]byte, SecretKeySize)
	pkC := X25519.GenerateKeyPair(skC)
	pkS := X25519.GenerateKeyPair(skS)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = X25519.SessionKeys(skC, pkS, pkC, pkS)
	}
}

// Package token derives the per-request signature carried in every request
// header, and the secret used to acquire a communication token.
package token

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"
)

// NonceLen is the number of hex characters prefixed to every signed token.
const NonceLen = 6

// Signer produces signed request tokens. A Signer remembers the last nonce
// it handed out so that two consecutive tokens never share one.
type Signer struct {
	mu        sync.Mutex
	lastNonce string
	// random is swapped in tests to force collisions.
	random func() string
}

// NewSigner returns a Signer backed by crypto/rand.
func NewSigner() *Signer {
	return &Signer{random: randomNonce}
}

// Sign returns nonce + hex(sha1("method:commToken:salt:nonce")).
func (s *Signer) Sign(method, commToken, salt string) string {
	nonce := s.nextNonce()
	return nonce + digest(method, commToken, salt, nonce)
}

// Verify reports whether signed was produced by Sign for the same method,
// communication token and salt.
func Verify(signed, method, commToken, salt string) bool {
	if len(signed) != NonceLen+sha1.Size*2 {
		return false
	}
	nonce := signed[:NonceLen]
	return subtle.ConstantTimeCompare([]byte(signed[NonceLen:]), []byte(digest(method, commToken, salt, nonce))) == 1
}

func digest(method, commToken, salt, nonce string) string {
	plain := strings.Join([]string{method, commToken, salt, nonce}, ":")
	sum := sha1.Sum([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// LastNonce reports the most recent nonce produced by s.
func (s *Signer) LastNonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastNonce
}

func (s *Signer) nextNonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.random
	if gen == nil {
		gen = randomNonce
	}
	nonce := gen()
	for nonce == s.lastNonce {
		nonce = gen()
	}
	s.lastNonce = nonce
	return nonce
}

// SecretKey is the secret sent with getCommunicationToken: the hex MD5 of the
// anonymous session id.
func SecretKey(sessionID string) string {
	sum := md5.Sum([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

func randomNonce() string {
	buf := make([]byte, NonceLen/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is unusable.
		panic("token: read random: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

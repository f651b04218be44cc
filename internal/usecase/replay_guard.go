package usecase

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

var (
	// ErrExpiredTimestamp is returned when a signed request's timestamp
	// falls outside the freshness window in either direction.
	ErrExpiredTimestamp = errors.New("timestamp outside freshness window")

	// ErrInvalidSignature covers malformed actor addresses, malformed
	// signatures and verification mismatches alike. Callers must not be
	// able to tell which, so a probe learns nothing about why it failed.
	ErrInvalidSignature = errors.New("invalid signature")
)

// ReplayGuardConfig holds configuration for the ReplayGuard.
type ReplayGuardConfig struct {
	// Namespace is the fixed tag both signer and verifier prepend to the
	// canonical message.
	Namespace string
	// MaxAge bounds |now - timestamp|; it doubles as the clock skew
	// tolerance, symmetric in both directions.
	MaxAge time.Duration
}

// DefaultReplayGuardConfig returns the default configuration.
func DefaultReplayGuardConfig() ReplayGuardConfig {
	return ReplayGuardConfig{
		Namespace: "livebridge",
		MaxAge:    5 * time.Minute,
	}
}

// ReplayGuard verifies signed streaming-session requests: the signature
// must match the actor's public key over the canonical message, and the
// timestamp must be inside the freshness window. It keeps no state — replay
// resistance comes entirely from the bounded timestamp window.
type ReplayGuard struct {
	namespace string
	maxAge    time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewReplayGuard creates a ReplayGuard.
func NewReplayGuard(cfg ReplayGuardConfig) *ReplayGuard {
	return &ReplayGuard{
		namespace: cfg.Namespace,
		maxAge:    cfg.MaxAge,
		now:       time.Now,
	}
}

// CanonicalMessage derives the exact byte string a client signs for a
// request: "<namespace>:<roomID>:<timestampMillis>". Any deviation on
// either side is a verification failure, not a crash.
func CanonicalMessage(namespace string, roomID uint64, timestampMs int64) string {
	return fmt.Sprintf("%s:%d:%d", namespace, roomID, timestampMs)
}

// Verify checks one signed request. It is a pure function of its inputs:
// no I/O, no mutation, safe to call concurrently and repeatedly.
func (g *ReplayGuard) Verify(actor model.Address, signatureHex string, timestampMs int64, roomID uint64) error {
	diff := g.now().UnixMilli() - timestampMs
	if diff < 0 {
		diff = -diff
	}
	if diff > g.maxAge.Milliseconds() {
		return ErrExpiredTimestamp
	}

	pub, err := actor.PublicKey()
	if err != nil {
		return ErrInvalidSignature
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}

	msg := CanonicalMessage(g.namespace, roomID, timestampMs)
	if !ed25519.Verify(pub, []byte(msg), sig) {
		return ErrInvalidSignature
	}
	return nil
}

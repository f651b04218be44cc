package usecase

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

type testSigner struct {
	addr model.Address
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr, err := model.EncodeAddress(pub)
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}
	return testSigner{addr: addr, priv: priv}
}

func (s testSigner) sign(namespace string, roomID uint64, timestampMs int64) string {
	msg := CanonicalMessage(namespace, roomID, timestampMs)
	return "0x" + hex.EncodeToString(ed25519.Sign(s.priv, []byte(msg)))
}

func TestReplayGuard_Verify_Valid(t *testing.T) {
	signer := newTestSigner(t)
	guard := NewReplayGuard(DefaultReplayGuardConfig())

	// Two minutes old, inside the five-minute window.
	ts := time.Now().Add(-2 * time.Minute).UnixMilli()
	sig := signer.sign("livebridge", 5, ts)

	if err := guard.Verify(signer.addr, sig, ts, 5); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}

	// Verification is idempotent: same inputs, same result.
	if err := guard.Verify(signer.addr, sig, ts, 5); err != nil {
		t.Errorf("repeat Verify() = %v, want nil", err)
	}
}

func TestReplayGuard_Verify_TimestampWindow(t *testing.T) {
	signer := newTestSigner(t)
	guard := NewReplayGuard(DefaultReplayGuardConfig())

	tests := []struct {
		name string
		age  time.Duration
		want error
	}{
		{"just inside window", 4 * time.Minute, nil},
		{"stale request", 7 * time.Minute, ErrExpiredTimestamp},
		{"future-dated request", -7 * time.Minute, ErrExpiredTimestamp},
		{"future but inside skew tolerance", -2 * time.Minute, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := time.Now().Add(-tt.age).UnixMilli()
			sig := signer.sign("livebridge", 5, ts)

			err := guard.Verify(signer.addr, sig, ts, 5)
			if !errors.Is(err, tt.want) && !(err == nil && tt.want == nil) {
				t.Errorf("Verify() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplayGuard_Verify_ExpiredEvenWithValidSignature(t *testing.T) {
	// An out-of-window request is rejected no matter how good the
	// signature is.
	signer := newTestSigner(t)
	guard := NewReplayGuard(DefaultReplayGuardConfig())

	ts := time.Now().Add(-400 * time.Second).UnixMilli()
	sig := signer.sign("livebridge", 5, ts)

	if err := guard.Verify(signer.addr, sig, ts, 5); !errors.Is(err, ErrExpiredTimestamp) {
		t.Errorf("Verify() = %v, want ErrExpiredTimestamp", err)
	}
}

func TestReplayGuard_Verify_InvalidSignature(t *testing.T) {
	signer := newTestSigner(t)
	other := newTestSigner(t)
	guard := NewReplayGuard(DefaultReplayGuardConfig())
	ts := time.Now().UnixMilli()

	tests := []struct {
		name  string
		actor model.Address
		sig   string
	}{
		{"signed by someone else", signer.addr, other.sign("livebridge", 5, ts)},
		{"signed for another room", signer.addr, signer.sign("livebridge", 6, ts)},
		{"signed for another timestamp", signer.addr, signer.sign("livebridge", 5, ts-1)},
		{"wrong namespace", signer.addr, signer.sign("otherapp", 5, ts)},
		{"garbage signature", signer.addr, "0xdeadbeef"},
		{"not hex", signer.addr, "zzzz"},
		{"malformed actor address", model.Address("not-an-address"), signer.sign("livebridge", 5, ts)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Verify(tt.actor, tt.sig, ts, 5)
			// Every failure mode collapses to the same error.
			if !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("Verify() = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestCanonicalMessage(t *testing.T) {
	got := CanonicalMessage("livebridge", 5, 1700000000000)
	want := "livebridge:5:1700000000000"
	if got != want {
		t.Errorf("CanonicalMessage() = %q, want %q", got, want)
	}
}

package model

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Address is an account identity in the ledger's native SS58 encoding:
// base58(prefix || pubkey || checksum) where the checksum is the first two
// bytes of blake2b-512("SS58PRE" || prefix || pubkey).
type Address string

// ss58Prefix is the generic network prefix. Addresses under it start with "5".
const ss58Prefix = 42

var ss58ChecksumPreimage = []byte("SS58PRE")

var (
	ErrMalformedAddress = errors.New("malformed address")
	ErrBadChecksum      = errors.New("address checksum mismatch")
)

func ss58Checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58ChecksumPreimage)
	h.Write(body)
	return h.Sum(nil)[:2]
}

// EncodeAddress renders an ed25519 public key as an SS58 address.
func EncodeAddress(pub ed25519.PublicKey) (Address, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: public key is %d bytes", ErrMalformedAddress, len(pub))
	}
	body := make([]byte, 0, 1+ed25519.PublicKeySize+2)
	body = append(body, ss58Prefix)
	body = append(body, pub...)
	body = append(body, ss58Checksum(body)...)
	return Address(base58.Encode(body)), nil
}

// PublicKey decodes the address back into its ed25519 public key.
// Any structural defect (bad base58, wrong length, wrong prefix, checksum
// mismatch) is reported; callers performing signature checks must not
// distinguish these from a bad signature.
func (a Address) PublicKey() (ed25519.PublicKey, error) {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	if len(raw) != 1+ed25519.PublicKeySize+2 {
		return nil, fmt.Errorf("%w: decoded length %d", ErrMalformedAddress, len(raw))
	}
	if raw[0] != ss58Prefix {
		return nil, fmt.Errorf("%w: network prefix %d", ErrMalformedAddress, raw[0])
	}
	body := raw[:1+ed25519.PublicKeySize]
	sum := ss58Checksum(body)
	if raw[len(raw)-2] != sum[0] || raw[len(raw)-1] != sum[1] {
		return nil, ErrBadChecksum
	}
	return ed25519.PublicKey(raw[1 : 1+ed25519.PublicKeySize]), nil
}

// Valid reports whether the address decodes cleanly.
func (a Address) Valid() bool {
	_, err := a.PublicKey()
	return err == nil
}

func (a Address) String() string {
	return string(a)
}

package invocation

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nkeys"
	"github.com/zeebo/blake3"

	"github.com/morezero/actor-dispatch/pkg/entity"
)

const proofLogPrefix = "invocation:proof"

var (
	// ErrSigning is wrapped by every failure of the host signer.
	ErrSigning = errors.New("invocation signing failed")
	// ErrInvalidProof is wrapped by every verification failure.
	ErrInvalidProof = errors.New("invalid invocation proof")
)

// Signer is the host's private signing identity. An nkeys.KeyPair satisfies it.
// Implementations must be safe for concurrent use; the private material never leaves the signer.
type Signer interface {
	PublicKey() (string, error)
	Sign(input []byte) ([]byte, error)
}

// Claims is the signed body of a proof.
type Claims struct {
	ID       string `json:"jti"`
	Issuer   string `json:"iss"`
	IssuedAt int64  `json:"iat"`
	Hash     string `json:"inv_hash"`
}

type proofHeader struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

var encodedHeader = mustEncodeHeader()

func mustEncodeHeader() string {
	data, err := json.Marshal(proofHeader{Type: "JWT", Algorithm: "ed25519-nkey"})
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// ComputeHash returns the hex BLAKE3-256 digest binding version, origin, target, operation and message.
// Every field is length-prefixed so distinct field splits never collide, and entities are hashed by their
// structured fields rather than their URL, which is ambiguous when an identifier contains "/".
func ComputeHash(inv *Invocation) string {
	h := blake3.New()
	var size [8]byte
	write := func(b []byte) {
		binary.BigEndian.PutUint64(size[:], uint64(len(b)))
		h.Write(size[:])
		h.Write(b)
	}
	writeEntity := func(e entity.Entity) {
		write([]byte(e.Kind()))
		write([]byte(e.CapabilityID()))
		write([]byte(e.Binding()))
		write([]byte(e.ActorID()))
	}
	write([]byte(inv.Version))
	writeEntity(inv.Origin)
	writeEntity(inv.Target)
	write([]byte(inv.Operation))
	write(inv.Msg)
	return hex.EncodeToString(h.Sum(nil))
}

func encodeProof(signer Signer, claims *Claims) (string, error) {
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("%s - failed to encode claims: %w", proofLogPrefix, err)
	}
	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(body)
	sig, err := signer.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("%s - %w: %v", proofLogPrefix, ErrSigning, err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// DecodeProof checks the signature of a proof against its issuer and returns the claims.
// It does not compare the claims with an envelope; see (*Invocation).Verify.
func DecodeProof(proof string) (*Claims, error) {
	parts := strings.Split(proof, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%s - %w: expected 3 segments, got %d", proofLogPrefix, ErrInvalidProof, len(parts))
	}
	if parts[0] != encodedHeader {
		return nil, fmt.Errorf("%s - %w: unsupported header", proofLogPrefix, ErrInvalidProof)
	}
	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%s - %w: claims encoding: %v", proofLogPrefix, ErrInvalidProof, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%s - %w: signature encoding: %v", proofLogPrefix, ErrInvalidProof, err)
	}

	var claims Claims
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("%s - %w: claims: %v", proofLogPrefix, ErrInvalidProof, err)
	}

	issuer, err := nkeys.FromPublicKey(claims.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s - %w: issuer %q: %v", proofLogPrefix, ErrInvalidProof, claims.Issuer, err)
	}
	if err := issuer.Verify([]byte(parts[0]+"."+parts[1]), sig); err != nil {
		return nil, fmt.Errorf("%s - %w: signature: %v", proofLogPrefix, ErrInvalidProof, err)
	}
	return &claims, nil
}

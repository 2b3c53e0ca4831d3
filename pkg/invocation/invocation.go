package invocation

import (
	"crypto/subtle"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/actor-dispatch/pkg/entity"
)

const logPrefix = "invocation:invocation"

// New builds a signed invocation from origin to target. The message is copied, so callers may reuse their buffer.
// The only failure mode is the signer itself; see ErrSigning.
func New(signer Signer, origin, target entity.Entity, operation string, msg []byte) (*Invocation, error) {
	issuer, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%s - %w: public key unavailable: %v", logPrefix, ErrSigning, err)
	}

	inv := &Invocation{
		ID:        uuid.NewString(),
		Version:   EnvelopeVersion,
		Origin:    origin,
		Target:    target,
		Operation: operation,
		Msg:       slices.Clone(msg),
	}
	if inv.Msg == nil {
		inv.Msg = []byte{}
	}

	proof, err := encodeProof(signer, &Claims{
		ID:       inv.ID,
		Issuer:   issuer,
		IssuedAt: time.Now().UTC().Unix(),
		Hash:     ComputeHash(inv),
	})
	if err != nil {
		return nil, err
	}
	inv.Proof = proof
	return inv, nil
}

// Verify checks that the proof was signed by the issuer it names, that its hash covers exactly this envelope
// (version, entities, operation and message), and, when trusted is non-empty, that the issuer is one of the
// trusted host keys.
func (inv *Invocation) Verify(trusted ...string) (*Claims, error) {
	claims, err := DecodeProof(inv.Proof)
	if err != nil {
		return nil, err
	}
	if claims.ID != inv.ID {
		return nil, fmt.Errorf("%s - %w: proof id %q does not match invocation %q", logPrefix, ErrInvalidProof, claims.ID, inv.ID)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Hash), []byte(ComputeHash(inv))) != 1 {
		return nil, fmt.Errorf("%s - %w: envelope hash mismatch", logPrefix, ErrInvalidProof)
	}
	if len(trusted) > 0 && !slices.Contains(trusted, claims.Issuer) {
		return nil, fmt.Errorf("%s - %w: issuer %s is not trusted", logPrefix, ErrInvalidProof, claims.Issuer)
	}
	return claims, nil
}

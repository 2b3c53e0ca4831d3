// Package hostkey loads and generates the host's nkeys signing identity.
package hostkey

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/nats-io/nkeys"
)

const logPrefix = "hostkey:hostkey"

// ErrNoSeed is returned when neither a seed nor a seed file is configured.
var ErrNoSeed = errors.New("no host seed configured")

// Generate creates a new server key pair for signing invocations.
func Generate() (nkeys.KeyPair, error) {
	kp, err := nkeys.CreateServer()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create server key: %w", logPrefix, err)
	}
	return kp, nil
}

// Load parses the host seed. An inline seed takes precedence over seedFile.
// The key must be a server key (public key prefix N).
func Load(seed, seedFile string) (nkeys.KeyPair, error) {
	raw := []byte(seed)
	if len(raw) == 0 && seedFile != "" {
		data, err := os.ReadFile(seedFile)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read seed file %s: %w", logPrefix, seedFile, err)
		}
		raw = data
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s - %w", logPrefix, ErrNoSeed)
	}

	kp, err := nkeys.FromSeed(raw)
	if err != nil {
		// The nkeys error never echoes the seed.
		return nil, fmt.Errorf("%s - invalid host seed: %w", logPrefix, err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to derive public key: %w", logPrefix, err)
	}
	if !nkeys.IsValidPublicServerKey(pub) {
		kp.Wipe()
		return nil, fmt.Errorf("%s - host key %s is not a server key", logPrefix, pub)
	}
	return kp, nil
}

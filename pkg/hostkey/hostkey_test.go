package hostkey

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nats-io/nkeys"
)

const hostkeyTestPrefix = "hostkey:hostkey_test"

func TestGenerate(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("%s - Generate failed: %v", hostkeyTestPrefix, err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("%s - PublicKey failed: %v", hostkeyTestPrefix, err)
	}
	if !strings.HasPrefix(pub, "N") {
		t.Errorf("%s - expected server public key, got %s", hostkeyTestPrefix, pub)
	}
}

func TestLoad_InlineSeed(t *testing.T) {
	kp, _ := Generate()
	seed, _ := kp.Seed()
	want, _ := kp.PublicKey()

	loaded, err := Load(" "+string(seed)+"\n", "")
	if err != nil {
		t.Fatalf("%s - Load failed: %v", hostkeyTestPrefix, err)
	}
	got, _ := loaded.PublicKey()
	if got != want {
		t.Errorf("%s - public key = %s, want %s", hostkeyTestPrefix, got, want)
	}
}

func TestLoad_SeedFile(t *testing.T) {
	kp, _ := Generate()
	seed, _ := kp.Seed()
	want, _ := kp.PublicKey()

	path := filepath.Join(t.TempDir(), "host.nk")
	if err := os.WriteFile(path, append(seed, '\n'), 0o600); err != nil {
		t.Fatalf("%s - write seed file: %v", hostkeyTestPrefix, err)
	}

	loaded, err := Load("", path)
	if err != nil {
		t.Fatalf("%s - Load failed: %v", hostkeyTestPrefix, err)
	}
	got, _ := loaded.PublicKey()
	if got != want {
		t.Errorf("%s - public key = %s, want %s", hostkeyTestPrefix, got, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	user, _ := nkeys.CreateUser()
	userSeed, _ := user.Seed()

	tests := []struct {
		name     string
		seed     string
		seedFile string
		wantNone bool
	}{
		{"nothing configured", "", "", true},
		{"missing file", "", filepath.Join(t.TempDir(), "absent.nk"), false},
		{"garbage seed", "SNOTAREALSEED", "", false},
		{"user key", string(userSeed), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp, err := Load(tt.seed, tt.seedFile)
			if err == nil {
				t.Fatalf("%s - expected error", hostkeyTestPrefix)
			}
			if kp != nil {
				t.Errorf("%s - expected nil key pair", hostkeyTestPrefix)
			}
			if errors.Is(err, ErrNoSeed) != tt.wantNone {
				t.Errorf("%s - errors.Is(ErrNoSeed) = %v, want %v", hostkeyTestPrefix, !tt.wantNone, tt.wantNone)
			}
			if tt.seed != "" && strings.Contains(err.Error(), tt.seed) {
				t.Errorf("%s - error leaks seed material", hostkeyTestPrefix)
			}
		})
	}
}

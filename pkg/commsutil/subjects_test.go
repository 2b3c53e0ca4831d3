package commsutil

import (
	"strings"
	"testing"
)

func TestActorSubject(t *testing.T) {
	tests := []struct {
		name    string
		actorID string
		want    string
	}{
		{"nkey public key", "MB2ZQB6ROOMAYBO4ZCTFYWN7YIVBWA3MTKZYAQKJMTIHE2ELLRW2E3ZW", "wasmbus.actor.MB2ZQB6ROOMAYBO4ZCTFYWN7YIVBWA3MTKZYAQKJMTIHE2ELLRW2E3ZW"},
		{"hyphenated", "echo-actor", "wasmbus.actor.echo-actor"},
		{"dotted", "a.b", "wasmbus.actor.a_2Eb"},
		{"underscore is escaped", "a_b", "wasmbus.actor.a_5Fb"},
		{"wildcards", "*>", "wasmbus.actor._2A_3E"},
		{"whitespace", "a b", "wasmbus.actor.a_20b"},
		{"empty", "", "wasmbus.actor._"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActorSubject(tt.actorID)
			if got != tt.want {
				t.Errorf("ActorSubject(%q) = %q, want %q", tt.actorID, got, tt.want)
			}
		})
	}
}

func TestActorSubject_Stable(t *testing.T) {
	id := "actor.with spaces_and*stuff"
	first := ActorSubject(id)
	for i := 0; i < 100; i++ {
		if got := ActorSubject(id); got != first {
			t.Fatalf("commsutil:subjects_test - ActorSubject not stable: %q vs %q", got, first)
		}
	}
}

func TestActorSubject_Injective(t *testing.T) {
	ids := []string{
		"", "_", "__", "a", "A", "a.b", "a_b", "a_2Eb", "a-b", "a b", "a\x00b",
		"_2E", ".", "*", ">", "é", "\xff", "MB2ZQB6ROOMAYBO4", "mb2zqb6roomaybo4",
	}
	seen := make(map[string]string, len(ids))
	for _, id := range ids {
		subject := ActorSubject(id)
		if prev, ok := seen[subject]; ok {
			t.Fatalf("commsutil:subjects_test - %q and %q both map to %q", prev, id, subject)
		}
		seen[subject] = id
	}
}

func TestActorSubject_SingleToken(t *testing.T) {
	for _, id := range []string{"a.b.c", "x > y", "*", "\t\n", "ümlaut"} {
		token := strings.TrimPrefix(ActorSubject(id), SubjectActorPrefix)
		if strings.ContainsAny(token, ".*> \t\r\n") {
			t.Errorf("commsutil:subjects_test - token %q for %q is not a single subject token", token, id)
		}
		if token == "" {
			t.Errorf("commsutil:subjects_test - empty token for %q", id)
		}
	}
}

func TestParseActorSubject_RoundTrip(t *testing.T) {
	for _, id := range []string{"", "_", "a.b", "a_b", "x y z", "é", "\x00", "MB2ZQB6ROOMAYBO4"} {
		got, err := ParseActorSubject(ActorSubject(id))
		if err != nil {
			t.Fatalf("commsutil:subjects_test - ParseActorSubject(%q): %v", id, err)
		}
		if got != id {
			t.Errorf("commsutil:subjects_test - round trip %q -> %q", id, got)
		}
	}
}

func TestParseActorSubject_Invalid(t *testing.T) {
	tests := []string{
		"wasmbus.events.invocation",
		"wasmbus.actor.",
		"wasmbus.actor.a_2",
		"wasmbus.actor.a_zz",
		"wasmbus.actor.a_2e",
		"wasmbus.actor.a.b",
	}
	for _, subject := range tests {
		if _, err := ParseActorSubject(subject); err == nil {
			t.Errorf("commsutil:subjects_test - expected error for %q", subject)
		}
	}
}

func TestBuildInvocationEventSubject(t *testing.T) {
	got := BuildInvocationEventSubject("echo.actor")
	if got != "wasmbus.events.invocation.echo_2Eactor" {
		t.Errorf("BuildInvocationEventSubject = %q", got)
	}
}

package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectActorPrefix     = "wasmbus.actor."
	SubjectActorWildcard   = SubjectActorPrefix + "*"
	SubjectInvocationEvent = "wasmbus.events.invocation"
)

const (
	escapeByte = '_'
	upperHex   = "0123456789ABCDEF"
)

// ActorSubject returns the subject an actor host listens on for the given actor id.
// The mapping is deterministic and reversible (see ParseActorSubject), so distinct ids never share a subject.
// It never fails: any string, including the empty one, yields a single valid subject token.
func ActorSubject(actorID string) string {
	return SubjectActorPrefix + EncodeToken(actorID)
}

// ParseActorSubject recovers the actor id from a subject built by ActorSubject.
func ParseActorSubject(subject string) (string, error) {
	token, ok := strings.CutPrefix(subject, SubjectActorPrefix)
	if !ok {
		return "", fmt.Errorf("commsutil:subjects - %q is not an actor subject", subject)
	}
	return DecodeToken(token)
}

// BuildInvocationEventSubject builds the per-actor invocation event subject.
func BuildInvocationEventSubject(actorID string) string {
	return SubjectInvocationEvent + "." + EncodeToken(actorID)
}

// EncodeToken escapes s into a single subject token. Bytes in [A-Za-z0-9-] are kept,
// every other byte becomes _XX (uppercase hex). The empty string encodes as "_".
func EncodeToken(s string) string {
	if s == "" {
		return string(escapeByte)
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isTokenSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte(escapeByte)
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) (string, error) {
	if token == string(escapeByte) {
		return "", nil
	}
	if token == "" {
		return "", fmt.Errorf("commsutil:subjects - empty token")
	}
	var b strings.Builder
	b.Grow(len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		if c != escapeByte {
			if !isTokenSafe(c) {
				return "", fmt.Errorf("commsutil:subjects - invalid byte %q in token %q", c, token)
			}
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(token) {
			return "", fmt.Errorf("commsutil:subjects - truncated escape in token %q", token)
		}
		hi, ok1 := fromHex(token[i+1])
		lo, ok2 := fromHex(token[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("commsutil:subjects - invalid escape in token %q", token)
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

func isTokenSafe(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-'
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

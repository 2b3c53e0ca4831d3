// Package entity identifies the participants of an invocation: capability provider instances and actors.
package entity

import (
	"encoding/json"
	"fmt"
)

const logPrefix = "entity:entity"

// URLScheme prefixes the rendered form of every entity.
const URLScheme = "wasmbus://"

// Kind discriminates the two entity variants.
type Kind string

const (
	KindCapability Kind = "capability"
	KindActor      Kind = "actor"
)

// Entity is either a capability provider bound under a named binding, or an actor.
// The zero value is invalid. Entities are comparable with == and never ordered.
type Entity struct {
	kind         Kind
	capabilityID string
	binding      string
	actorID      string
}

// NewCapability returns the entity for a capability provider instance.
func NewCapability(capabilityID, binding string) Entity {
	return Entity{kind: KindCapability, capabilityID: capabilityID, binding: binding}
}

// NewActor returns the entity for an actor.
func NewActor(actorID string) Entity {
	return Entity{kind: KindActor, actorID: actorID}
}

func (e Entity) Kind() Kind           { return e.kind }
func (e Entity) CapabilityID() string { return e.capabilityID }
func (e Entity) Binding() string      { return e.binding }
func (e Entity) ActorID() string      { return e.actorID }

// IsCapability reports whether e is the capability variant.
func (e Entity) IsCapability() bool { return e.kind == KindCapability }

// IsActor reports whether e is the actor variant.
func (e Entity) IsActor() bool { return e.kind == KindActor }

// Equal reports structural equality.
func (e Entity) Equal(other Entity) bool { return e == other }

// Validate checks that the identifiers of the variant are non-empty.
func (e Entity) Validate() error {
	switch e.kind {
	case KindCapability:
		if e.capabilityID == "" {
			return fmt.Errorf("%s - capability id is required", logPrefix)
		}
		if e.binding == "" {
			return fmt.Errorf("%s - binding is required for capability %s", logPrefix, e.capabilityID)
		}
	case KindActor:
		if e.actorID == "" {
			return fmt.Errorf("%s - actor id is required", logPrefix)
		}
	default:
		return fmt.Errorf("%s - unknown entity kind %q", logPrefix, e.kind)
	}
	return nil
}

// URL renders the entity as wasmbus://<capid>/<binding> or wasmbus://<actor>.
func (e Entity) URL() string {
	switch e.kind {
	case KindCapability:
		return URLScheme + e.capabilityID + "/" + e.binding
	case KindActor:
		return URLScheme + e.actorID
	default:
		return URLScheme
	}
}

func (e Entity) String() string { return e.URL() }

// wireEntity is the JSON form carried inside invocation envelopes.
type wireEntity struct {
	Kind         Kind   `json:"kind"`
	CapabilityID string `json:"capability_id,omitempty"`
	Binding      string `json:"binding,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntity{
		Kind:         e.kind,
		CapabilityID: e.capabilityID,
		Binding:      e.binding,
		ActorID:      e.actorID,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Fields that do not belong to the decoded kind are dropped.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var w wireEntity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case KindCapability:
		*e = NewCapability(w.CapabilityID, w.Binding)
	case KindActor:
		*e = NewActor(w.ActorID)
	default:
		return fmt.Errorf("%s - unknown entity kind %q", logPrefix, w.Kind)
	}
	return nil
}

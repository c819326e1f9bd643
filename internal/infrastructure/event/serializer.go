package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/finledger/backend/internal/domain/shared"
)

// Upcaster migrates a stored event payload one schema version forward.
// Upcasters are chained at read time, so old payloads are never rewritten
// in place; the stream stays immutable.
type Upcaster interface {
	// SourceVersion is the schema version this upcaster reads
	SourceVersion() int
	// TargetVersion is the schema version this upcaster produces
	TargetVersion() int
	// Upcast transforms the raw JSON payload to the target version
	Upcast(payload []byte) ([]byte, error)
}

type eventSchema struct {
	currentVersion int
	goType         reflect.Type
	upcasters      map[int]Upcaster // source version -> upcaster to source+1
}

// Serializer maps event type names to Go types for the stream store and the
// dispatch outbox, and upgrades stale payloads through registered upcaster
// chains before unmarshalling.
type Serializer struct {
	mu      sync.RWMutex
	schemas map[string]*eventSchema
}

// NewSerializer creates an empty event serializer
func NewSerializer() *Serializer {
	return &Serializer{schemas: make(map[string]*eventSchema)}
}

// Register registers an unversioned event type (schema version 1, no migrations)
func (s *Serializer) Register(eventType string, instance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[eventType] = &eventSchema{
		currentVersion: 1,
		goType:         structTypeOf(instance),
		upcasters:      map[int]Upcaster{},
	}
}

// RegisterVersioned registers an event type whose schema has evolved. The
// upcaster chain must cover every step from version 1 to currentVersion.
func (s *Serializer) RegisterVersioned(eventType string, currentVersion int, instance shared.DomainEvent, upcasters ...Upcaster) error {
	chain := make(map[int]Upcaster, len(upcasters))
	for _, u := range upcasters {
		if u.TargetVersion() != u.SourceVersion()+1 {
			return fmt.Errorf("upcaster for %s must step one version: got %d -> %d", eventType, u.SourceVersion(), u.TargetVersion())
		}
		chain[u.SourceVersion()] = u
	}
	for v := 1; v < currentVersion; v++ {
		if _, ok := chain[v]; !ok {
			return fmt.Errorf("missing upcaster %d -> %d for event type %s", v, v+1, eventType)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[eventType] = &eventSchema{
		currentVersion: currentVersion,
		goType:         structTypeOf(instance),
		upcasters:      chain,
	}
	return nil
}

// Serialize serializes a domain event to JSON. The schema_version field is
// carried by the event struct itself.
func (s *Serializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes a stored payload into the current event struct,
// running it through the upcaster chain first when the payload predates the
// current schema version.
func (s *Serializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	schema, ok := s.schemas[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	payload := data
	for v := PayloadSchemaVersion(data); v < schema.currentVersion; v++ {
		upcaster, ok := schema.upcasters[v]
		if !ok {
			return nil, fmt.Errorf("missing upcaster %d -> %d for event type %s", v, v+1, eventType)
		}
		upgraded, err := upcaster.Upcast(payload)
		if err != nil {
			return nil, fmt.Errorf("upcast %s v%d -> v%d: %w", eventType, v, v+1, err)
		}
		payload = upgraded
	}

	ptr := reflect.New(schema.goType).Interface()
	if err := json.Unmarshal(payload, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %s does not implement DomainEvent", eventType)
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *Serializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.schemas[eventType]
	return ok
}

// CurrentVersion returns the current schema version for an event type
func (s *Serializer) CurrentVersion(eventType string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[eventType]
	if !ok {
		return 0, false
	}
	return schema.currentVersion, true
}

// RegisteredTypes returns all registered event type names
func (s *Serializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.schemas))
	for t := range s.schemas {
		types = append(types, t)
	}
	return types
}

// PayloadSchemaVersion extracts the schema_version field from a raw payload.
// Payloads written before versioning existed carry no field and count as v1.
func PayloadSchemaVersion(payload []byte) int {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.SchemaVersion == 0 {
		return 1
	}
	return probe.SchemaVersion
}

func structTypeOf(instance shared.DomainEvent) reflect.Type {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

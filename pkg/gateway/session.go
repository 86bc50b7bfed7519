package gateway

import (
	"context"
	"encoding/json"
)

// Event is a single occurrence on the hub session stream. The set of
// implementations is closed: Connected, Disconnected and EventMessage.
type Event interface {
	sessionEvent()
}

// Connected signals that the session established a connection to the hub.
type Connected struct{}

// Disconnected signals that the session lost its connection to the hub.
type Disconnected struct{}

// EventMessage carries one inbound message from the hub.
type EventMessage struct {
	Msg Message
}

func (Connected) sessionEvent()    {}
func (Disconnected) sessionEvent() {}
func (EventMessage) sessionEvent() {}

// Message is the envelope of an inbound hub message: a declared type string
// and a list of per-entity payloads.
type Message struct {
	Type     string       `json:"type"`
	Entities []EntityData `json:"entities"`

	// HasEntities reports whether the entities member was present in the
	// raw message. A message without it is a protocol violation and is
	// dropped; an empty list is valid.
	HasEntities bool `json:"-"`
}

// UnmarshalJSON decodes a message and records whether the entities member was
// present, so an absent list can be told apart from an empty one.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	_, a.HasEntities = probe["entities"]
	*m = Message(a)
	return nil
}

// AttrValue is one attribute/value pair as exchanged with the hub.
type AttrValue struct {
	Attr  string `json:"attr,omitempty"`
	Value any    `json:"value,omitempty"`

	// Times carries the press count on button event payloads, which reuse
	// the attributes list with a single {"times": n} member.
	Times int `json:"times,omitempty"`
}

// SvcData describes one service (entity) advertised by a device.
type SvcData struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Room       string      `json:"room,omitempty"`
	Profile    int         `json:"profile"`
	Attributes []AttrValue `json:"attributes,omitempty"`
}

// SceneAction is one action of a hub scene. Scenes without actions are not
// exported.
type SceneAction struct {
	ID    string `json:"id"`
	Attr  string `json:"attr"`
	Value any    `json:"value"`
}

// EntityData is the hub's description of one entity in an event or query
// response. The hub reuses a single shape for devices, device groups, scenes
// and event payloads; absent members stay at their zero value, optional
// members the gateway must default are pointers.
type EntityData struct {
	ID         string        `json:"id"`
	Type       string        `json:"type,omitempty"`
	Name       string        `json:"name,omitempty"`
	Model      string        `json:"model,omitempty"`
	Version    *int          `json:"version,omitempty"`
	HWVersion  *int          `json:"hwVersion,omitempty"`
	Online     *bool         `json:"online,omitempty"`
	Room       string        `json:"room,omitempty"`
	Profile    int           `json:"profile,omitempty"`
	Services   []SvcData     `json:"services,omitempty"`
	Attributes []AttrValue   `json:"attributes,omitempty"`
	Actions    []SceneAction `json:"actions,omitempty"`
	On         any           `json:"on,omitempty"`
}

// OnlineOrDefault returns the reported online flag, defaulting to true when
// the hub omitted it.
func (d *EntityData) OnlineOrDefault() bool {
	if d.Online == nil {
		return true
	}
	return *d.Online
}

// asService reinterprets the entity as its own sole service entry. Device
// groups carry no service list; the group itself is the service.
func (d *EntityData) asService() SvcData {
	return SvcData{
		ID:         d.ID,
		Name:       d.Name,
		Room:       d.Room,
		Profile:    d.Profile,
		Attributes: d.Attributes,
	}
}

// QueryResult is the payload of a successful list-entities query.
type QueryResult struct {
	Entities []EntityData `json:"entities"`
}

// QueryResponse is the hub's reply to a list-entities query. A missing Rsp
// member signals a failed query.
type QueryResponse struct {
	Rsp *QueryResult `json:"rsp,omitempty"`
}

// SessionClient is the wire client that owns the raw hub connection,
// authentication and message framing. Implementations must deliver session
// events to the registered handler one at a time, in arrival order.
type SessionClient interface {
	// Connect establishes the session. Failures after this call returns
	// are observed via Disconnected events, not via return values.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Safe to call when already
	// disconnected.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether a session is currently established.
	IsConnected() bool

	// DeviceID returns the hub's own device id (e.g. "box-12-34-56-78-90-ab").
	DeviceID() string

	// SetHost updates the hub's network location for the next connect.
	SetHost(host string, port int)

	// SetAttribute writes a single attribute value to an entity.
	SetAttribute(ctx context.Context, eid, attr string, value any, method int) error

	// SetAttributes writes several attribute values to an entity in one call.
	SetAttributes(ctx context.Context, eid string, attrs []AttrValue, method int) error

	// Query lists hub entities of the given type ("room", "device",
	// "devicegroup", "scene").
	Query(ctx context.Context, entityType string, details bool) (QueryResponse, error)

	// RegisterEventHandler registers the single session event handler.
	RegisterEventHandler(handler func(Event))
}

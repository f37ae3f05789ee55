package types

import "time"

// EventRange is the inclusive span of indices a controller still retains in
// its ring buffer.
type EventRange struct {
	First uint32 `json:"first"`
	Last  uint32 `json:"last"`
}

// Empty reports whether the range holds no events. A zero or inverted range
// is empty.
func (r EventRange) Empty() bool {
	return r.Last == 0 || r.First > r.Last
}

// Count is the number of indices in the range.
func (r EventRange) Count() int {
	if r.Empty() {
		return 0
	}
	return int(r.Last-r.First) + 1
}

// GatewayEvent is an event body as returned by the controller gateway.
type GatewayEvent struct {
	DeviceID        uint32 `json:"device-id"`
	EventID         uint32 `json:"event-id"`
	EventType       int    `json:"event-type"`
	EventTypeText   string `json:"event-type-text"`
	AccessGranted   bool   `json:"access-granted"`
	DoorID          int    `json:"door-id"`
	Direction       int    `json:"direction"`
	DirectionText   string `json:"direction-text"`
	CardNumber      uint32 `json:"card-number"`
	Timestamp       string `json:"timestamp"`
	EventReason     int    `json:"event-reason"`
	EventReasonText string `json:"event-reason-text"`
}

// Identity returns the tuple that recognises this event once it is stored
// for controllerID.
func (e GatewayEvent) Identity(controllerID uint32) EventIdentity {
	return EventIdentity{
		ControllerID:    controllerID,
		EventID:         e.EventID,
		Timestamp:       e.Timestamp,
		CardNumber:      e.CardNumber,
		EventType:       e.EventType,
		EventTypeText:   e.EventTypeText,
		AccessGranted:   e.AccessGranted,
		DoorID:          e.DoorID,
		Direction:       e.Direction,
		DirectionText:   e.DirectionText,
		EventReason:     e.EventReason,
		EventReasonText: e.EventReasonText,
	}
}

// EventIdentity is the twelve-field composite key used to detect an event
// that is already in the log. All fields must match.
type EventIdentity struct {
	ControllerID    uint32
	EventID         uint32
	Timestamp       string
	CardNumber      uint32
	EventType       int
	EventTypeText   string
	AccessGranted   bool
	DoorID          int
	Direction       int
	DirectionText   string
	EventReason     int
	EventReasonText string
}

// EventRecord is a row of the durable event log. Name, Email and
// MembershipType are copied from the member directory at insert time.
type EventRecord struct {
	ID                 int64      `json:"id,omitempty"`
	ControllerID       uint32     `json:"controller_id"`
	EventID            uint32     `json:"event_id"`
	Timestamp          string     `json:"timestamp"`
	TimestampUTC       *time.Time `json:"timestamp_utc"`
	CardNumber         uint32     `json:"card_number"`
	EventType          int        `json:"event_type"`
	EventTypeText      string     `json:"event_type_text"`
	AccessGranted      bool       `json:"access_granted"`
	DoorID             int        `json:"door_id"`
	Direction          int        `json:"direction"`
	DirectionText      string     `json:"direction_text"`
	EventReason        int        `json:"event_reason"`
	EventReasonText    string     `json:"event_reason_text"`
	InsertTimestampUTC *time.Time `json:"insert_timestamp_utc"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	MembershipType     string     `json:"membership_type"`
}

func (r EventRecord) Identity() EventIdentity {
	return EventIdentity{
		ControllerID:    r.ControllerID,
		EventID:         r.EventID,
		Timestamp:       r.Timestamp,
		CardNumber:      r.CardNumber,
		EventType:       r.EventType,
		EventTypeText:   r.EventTypeText,
		AccessGranted:   r.AccessGranted,
		DoorID:          r.DoorID,
		Direction:       r.Direction,
		DirectionText:   r.DirectionText,
		EventReason:     r.EventReason,
		EventReasonText: r.EventReasonText,
	}
}

// EventFilter narrows a log query. Zero-valued filters match everything.
type EventFilter struct {
	ControllerID uint32
	CardNumber   uint32
	DoorID       int
	Limit        int
	Offset       int
}

// EventQueryResult is one page of the durable log.
type EventQueryResult struct {
	Count  int           `json:"count"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Events []EventRecord `json:"events"`
}

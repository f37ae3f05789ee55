package types

// ViewEvent is a gateway event joined with the current member directory for
// display.
type ViewEvent struct {
	Index uint32 `json:"index"`
	GatewayEvent
	Name           string `json:"name"`
	Email          string `json:"email"`
	MembershipType string `json:"membership-type"`
}

type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
	PrevPage   *int `json:"prev_page"`
	NextPage   *int `json:"next_page"`
}

type EventsPage struct {
	ControllerID uint32      `json:"controller_id"`
	Range        EventRange  `json:"range"`
	Events       []ViewEvent `json:"events"`
	Pagination   Pagination  `json:"pagination"`
}

// LastEvent is the most recent event a controller can still return.
type LastEvent struct {
	ControllerID uint32    `json:"controller_id"`
	Index        uint32    `json:"index"`
	Event        ViewEvent `json:"event"`
}

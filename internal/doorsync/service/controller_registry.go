package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

var ErrUnknownController = errors.New("unknown controller")

// ErrMalformedTimestamp is returned for controller timestamps that are not
// "YYYY-MM-DD HH:MM:SS" with an optional zone name.
var ErrMalformedTimestamp = errors.New("malformed controller timestamp")

const controllerTimeLayout = "2006-01-02 15:04:05"

var zoneSuffixRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+\-/]*$`)

// ControllerRegistry is the fixed set of controllers loaded at startup.
type ControllerRegistry struct {
	ordered   []types.Controller
	byID      map[uint32]types.Controller
	locations map[uint32]*time.Location
}

// NewControllerRegistry resolves every controller's timezone once. A
// controller without a usable zone gets fallbackTZ, and UTC if that is not
// usable either.
func NewControllerRegistry(controllers []types.Controller, fallbackTZ string, logger logrus.FieldLogger) *ControllerRegistry {
	log := logger.WithField("component", "controllers")

	fallback := time.UTC
	if tz := strings.TrimSpace(fallbackTZ); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			fallback = loc
		} else {
			log.WithError(err).WithField("timezone", tz).Warn("fallback timezone not loadable, using UTC")
		}
	}

	r := &ControllerRegistry{
		byID:      make(map[uint32]types.Controller, len(controllers)),
		locations: make(map[uint32]*time.Location, len(controllers)),
	}
	for _, c := range controllers {
		if _, dup := r.byID[c.ID]; dup {
			log.WithField("controller_id", c.ID).Warn("duplicate controller ignored")
			continue
		}
		r.byID[c.ID] = c
		r.ordered = append(r.ordered, c)

		loc := fallback
		if tz := strings.TrimSpace(c.Timezone); tz != "" {
			if l, err := time.LoadLocation(tz); err == nil {
				loc = l
			} else {
				log.WithError(err).WithFields(logrus.Fields{"controller_id": c.ID, "timezone": tz}).
					Warn("controller timezone not loadable, using fallback")
			}
		}
		r.locations[c.ID] = loc
	}
	return r
}

// List returns the controllers in the order they were loaded.
func (r *ControllerRegistry) List() []types.Controller {
	out := make([]types.Controller, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *ControllerRegistry) Get(id uint32) (types.Controller, error) {
	c, ok := r.byID[id]
	if !ok {
		return types.Controller{}, fmt.Errorf("%w: %d", ErrUnknownController, id)
	}
	return c, nil
}

// Location is the timezone the controller's clock runs in.
func (r *ControllerRegistry) Location(id uint32) *time.Location {
	if loc, ok := r.locations[id]; ok {
		return loc
	}
	return time.UTC
}

// ParseControllerTimestamp reads a controller-local timestamp such as
// "2026-02-15 12:00:00 CST" in loc and returns it in UTC. The zone name, if
// present, is not trusted: abbreviations like CST are ambiguous, so the
// controller's configured location wins.
func ParseControllerTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(controllerTimeLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}

	if suffix := strings.TrimSpace(s[len(controllerTimeLayout):]); suffix != "" && !zoneSuffixRe.MatchString(suffix) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}

	t, err := time.ParseInLocation(controllerTimeLayout, s[:len(controllerTimeLayout)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, s, err)
	}
	return t.UTC(), nil
}

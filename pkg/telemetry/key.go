package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

type Session string

const (
	Practice1       Session = "FP1"
	Practice2       Session = "FP2"
	Practice3       Session = "FP3"
	SprintQualifier Session = "SQ"
	Sprint          Session = "S"
	Qualifying      Session = "Q"
	Race            Session = "R"
)

var sessions = []Session{Practice1, Practice2, Practice3, SprintQualifier, Sprint, Qualifying, Race}

func ParseSession(s string) (Session, error) {
	for _, session := range sessions {
		if strings.EqualFold(s, string(session)) {
			return session, nil
		}
	}
	return "", fmt.Errorf("unknown session %q", s)
}

// LookupKey identifies a telemetry request. A change of key restarts the replay.
type LookupKey struct {
	Year     int
	Location string
	Session  Session
	Driver   string
}

func (k LookupKey) Validate() error {
	if k.Year < 1950 {
		return fmt.Errorf("invalid year %d", k.Year)
	}
	if strings.TrimSpace(k.Location) == "" {
		return fmt.Errorf("location cannot be empty")
	}
	if _, err := ParseSession(string(k.Session)); err != nil {
		return err
	}
	return nil
}

func (k LookupKey) String() string {
	s := fmt.Sprintf("%d/%s/%s", k.Year, k.Location, k.Session)
	if k.Driver != "" {
		s += "/" + k.Driver
	}
	return s
}

// ParseKey builds a validated key from textual parts, as found in URLs and
// chat commands. The driver code is upper cased.
func ParseKey(year, location, session, driver string) (LookupKey, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return LookupKey{}, fmt.Errorf("invalid year %q", year)
	}
	s, err := ParseSession(strings.TrimSpace(session))
	if err != nil {
		return LookupKey{}, err
	}
	k := LookupKey{
		Year:     y,
		Location: strings.TrimSpace(location),
		Session:  s,
		Driver:   strings.ToUpper(strings.TrimSpace(driver)),
	}
	return k, k.Validate()
}

package entity

import (
	"fmt"
	"strings"
	"time"
)

// CustomTime accepts the date formats sent by browser date/datetime inputs
// as well as RFC 3339.
type CustomTime struct {
	time.Time
}

const customTimeLayout = "2006-01-02T15:04"

var customTimeLayouts = []string{
	time.RFC3339,
	customTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02",
}

func ParseCustomTime(s string) (CustomTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range customTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CustomTime{Time: t.UTC()}, nil
		}
	}
	return CustomTime{}, fmt.Errorf("unrecognised date %q", s)
}

func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		ct.Time = time.Time{}
		return nil
	}
	t, err := ParseCustomTime(s)
	if err != nil {
		return err
	}
	*ct = t
	return nil
}

func (ct CustomTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ct.Format(time.RFC3339) + `"`), nil
}

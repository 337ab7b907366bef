package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ChangeType distinguishes the two change events the upstream stream delivers.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// ErrMalformedChange is returned when a wire payload cannot be decoded into a
// well-formed Activity. The store schema and the client types can drift, so
// decoding happens strictly at the boundary and internals only ever see the
// decoded value.
var ErrMalformedChange = errors.New("malformed change payload")

// ChangePayload is the raw event shape the transport delivers: the new row
// for both INSERT and UPDATE changes.
type ChangePayload struct {
	New json.RawMessage `json:"new"`
}

// DecodeActivity decodes a change payload row into an Activity, rejecting
// rows that lack the fields the sync core depends on.
func DecodeActivity(raw json.RawMessage) (Activity, error) {
	if len(raw) == 0 {
		return Activity{}, fmt.Errorf("%w: missing new record", ErrMalformedChange)
	}

	var activity Activity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return Activity{}, fmt.Errorf("%w: %v", ErrMalformedChange, err)
	}

	switch {
	case activity.ID == "":
		return Activity{}, fmt.Errorf("%w: missing id", ErrMalformedChange)
	case activity.WorkOrderID == "":
		return Activity{}, fmt.Errorf("%w: missing work_order_id", ErrMalformedChange)
	case activity.ActivityType == "":
		return Activity{}, fmt.Errorf("%w: missing activity_type", ErrMalformedChange)
	}

	return activity, nil
}

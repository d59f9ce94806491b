package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Notification is a decoded push event: the mailbox changed and its history is now at HistoryID.
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// ParseNotification decodes the flat notification JSON. historyId may be a JSON string or number.
func ParseNotification(data []byte) (*Notification, error) {
	var raw struct {
		EmailAddress string          `json:"emailAddress"`
		HistoryID    json.RawMessage `json:"historyId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}

	historyID, err := parseHistoryID(raw.HistoryID)
	if err != nil {
		return nil, err
	}
	if historyID == 0 {
		return nil, errors.New("notification has no historyId")
	}
	return &Notification{EmailAddress: strings.TrimSpace(raw.EmailAddress), HistoryID: historyID}, nil
}

func parseHistoryID(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid historyId %q: %w", s, err)
		}
		return id, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("invalid historyId: %w", err)
	}
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid historyId %s: %w", n, err)
	}
	return id, nil
}

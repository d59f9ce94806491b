package delivery

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"inbox-agent/internal/sync/domain"
)

// pushEnvelope is the body Pub/Sub push subscriptions POST to the webhook.
type pushEnvelope struct {
	Message *struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodeNotification accepts either a Pub/Sub push envelope with base64 message.data
// or the flat {emailAddress, historyId} JSON.
func DecodeNotification(body []byte) (*domain.Notification, error) {
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if env.Message == nil {
		return domain.ParseNotification(body)
	}

	if env.Message.Data == "" {
		return nil, errors.New("push envelope has no data")
	}
	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		if data, err = base64.URLEncoding.DecodeString(env.Message.Data); err != nil {
			return nil, fmt.Errorf("invalid base64 message data: %w", err)
		}
	}
	return domain.ParseNotification(data)
}

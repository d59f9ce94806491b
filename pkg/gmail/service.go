package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	agentdomain "inbox-agent/internal/agent/domain"
	syncdomain "inbox-agent/internal/sync/domain"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	user       = "me"
	inboxLabel = "INBOX"
	unread     = "UNREAD"
)

// Service talks to the Gmail API on behalf of the single configured mailbox.
type Service struct {
	srv    *gmail.Service
	logger zerolog.Logger

	labelMu  sync.Mutex
	labelIDs map[string]string
}

// NewService builds a Gmail client that refreshes its access token from refreshToken.
func NewService(ctx context.Context, clientID, clientSecret, refreshToken string, logger zerolog.Logger) (*Service, error) {
	if refreshToken == "" {
		return nil, errors.New("gmail refresh token is not configured")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailModifyScope, gmail.GmailComposeScope},
	}
	tokenSource := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, TokenType: "Bearer"})

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return NewServiceWithClient(srv, logger), nil
}

// NewServiceWithClient wraps an already configured gmail.Service.
func NewServiceWithClient(srv *gmail.Service, logger zerolog.Logger) *Service {
	return &Service{
		srv:      srv,
		logger:   logger,
		labelIDs: make(map[string]string),
	}
}

// ListHistory returns one page of INBOX messageAdded history starting at startHistoryID.
// A 404 means the history id is older than the provider retains.
func (s *Service) ListHistory(ctx context.Context, startHistoryID uint64, pageToken string) (*syncdomain.ChangePage, error) {
	call := s.srv.Users.History.List(user).
		StartHistoryId(startHistoryID).
		LabelId(inboxLabel).
		HistoryTypes("messageAdded").
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, &syncdomain.CursorExpiredError{StartHistoryID: startHistoryID, Err: err}
		}
		return nil, fmt.Errorf("unable to list history since %d: %w", startHistoryID, err)
	}

	page := &syncdomain.ChangePage{NextPageToken: resp.NextPageToken}
	for _, h := range resp.History {
		record := syncdomain.ChangeRecord{HistoryID: h.Id}
		for _, added := range h.MessagesAdded {
			if added.Message != nil && added.Message.Id != "" {
				record.AddedMessageIDs = append(record.AddedMessageIDs, added.Message.Id)
			}
		}
		page.Records = append(page.Records, record)
	}
	return page, nil
}

// GetMessage fetches a message and extracts its headers and plain-text body.
func (s *Service) GetMessage(ctx context.Context, messageID string) (*agentdomain.Message, error) {
	msg, err := s.srv.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fetchError(messageID, err)
	}
	return convertMessage(msg), nil
}

// HasLabel reports whether the message already carries the named user label.
func (s *Service) HasLabel(ctx context.Context, messageID, labelName string) (bool, error) {
	labelID, err := s.lookupLabel(ctx, labelName)
	if err != nil {
		return false, fetchError(messageID, err)
	}
	if labelID == "" {
		return false, nil
	}

	msg, err := s.srv.Users.Messages.Get(user, messageID).Format("minimal").Context(ctx).Do()
	if err != nil {
		return false, fetchError(messageID, err)
	}
	return hasLabel(msg.LabelIds, labelID), nil
}

// CreateDraft stores reply as a draft in the original thread and returns the draft id.
func (s *Service) CreateDraft(ctx context.Context, messageID string, reply *agentdomain.Reply) (string, error) {
	raw, err := BuildReply(reply)
	if err != nil {
		return "", &agentdomain.ProviderWriteError{MessageID: messageID, Op: "build draft", Err: err}
	}

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      base64.URLEncoding.EncodeToString(raw),
			ThreadId: reply.ThreadID,
		},
	}
	created, err := s.srv.Users.Drafts.Create(user, draft).Context(ctx).Do()
	if err != nil {
		return "", &agentdomain.ProviderWriteError{MessageID: messageID, Op: "create draft", Err: err}
	}
	return created.Id, nil
}

// MarkDrafted adds the draft label and removes UNREAD in one modify call.
func (s *Service) MarkDrafted(ctx context.Context, messageID, labelName string) error {
	labelID, err := s.EnsureLabel(ctx, labelName)
	if err != nil {
		return &agentdomain.ProviderWriteError{MessageID: messageID, Op: "ensure label", Err: err}
	}

	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{unread},
	}
	if _, err := s.srv.Users.Messages.Modify(user, messageID, req).Context(ctx).Do(); err != nil {
		return &agentdomain.ProviderWriteError{MessageID: messageID, Op: "modify labels", Err: err}
	}
	return nil
}

// EnsureLabel returns the id of the named label, creating it when missing.
func (s *Service) EnsureLabel(ctx context.Context, labelName string) (string, error) {
	id, err := s.lookupLabel(ctx, labelName)
	if err != nil || id != "" {
		return id, err
	}

	created, err := s.srv.Users.Labels.Create(user, &gmail.Label{
		Name:                  labelName,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create label %s: %w", labelName, err)
	}

	s.labelMu.Lock()
	s.labelIDs[labelName] = created.Id
	s.labelMu.Unlock()
	s.logger.Info().Str("label", labelName).Str("label_id", created.Id).Msg("created label")
	return created.Id, nil
}

// lookupLabel resolves a label name to its id, returning "" if it does not exist.
func (s *Service) lookupLabel(ctx context.Context, labelName string) (string, error) {
	s.labelMu.Lock()
	id, ok := s.labelIDs[labelName]
	s.labelMu.Unlock()
	if ok {
		return id, nil
	}

	resp, err := s.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve labels: %w", err)
	}

	s.labelMu.Lock()
	defer s.labelMu.Unlock()
	for _, label := range resp.Labels {
		s.labelIDs[label.Name] = label.Id
	}
	return s.labelIDs[labelName], nil
}

// Watch registers INBOX push notifications on topicName.
func (s *Service) Watch(ctx context.Context, topicName string) (*syncdomain.WatchLease, error) {
	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{inboxLabel},
	}
	resp, err := s.srv.Users.Watch(user, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %w", err)
	}

	s.logger.Info().
		Str("topic", topicName).
		Uint64("history_id", resp.HistoryId).
		Int64("expiration_ms", resp.Expiration).
		Msg("watch started")
	return &syncdomain.WatchLease{
		HistoryID:  resp.HistoryId,
		Expiration: syncdomain.ExpirationFromMillis(resp.Expiration),
	}, nil
}

// Stop cancels push notifications for the mailbox.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.srv.Users.Stop(user).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// Profile returns the mailbox address and its current history id.
func (s *Service) Profile(ctx context.Context) (string, uint64, error) {
	p, err := s.srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to read profile: %w", err)
	}
	return p.EmailAddress, p.HistoryId, nil
}

func fetchError(messageID string, err error) error {
	code := statusCode(err)
	return &agentdomain.ProviderFetchError{
		MessageID: messageID,
		Permanent: code == http.StatusNotFound || code == http.StatusForbidden,
		Err:       err,
	}
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

func convertMessage(msg *gmail.Message) *agentdomain.Message {
	out := &agentdomain.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: msg.LabelIds,
	}
	if msg.Payload == nil {
		return out
	}

	out.Subject = getHeader(msg.Payload.Headers, "Subject")
	out.Sender = getHeader(msg.Payload.Headers, "From")
	out.RFC822MessageID = getHeader(msg.Payload.Headers, "Message-ID")
	out.Body = plainTextBody(msg.Payload)
	return out
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// plainTextBody returns the top-level body when the payload carries one directly,
// otherwise the first text/plain part found depth-first. Multipart messages
// without a text/plain part yield "".
func plainTextBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" && len(payload.Parts) == 0 {
		if !strings.HasPrefix(payload.MimeType, "text/plain") && payload.MimeType != "" {
			return ""
		}
		return decodeBody(payload.Body.Data)
	}

	var find func(parts []*gmail.MessagePart) (string, bool)
	find = func(parts []*gmail.MessagePart) (string, bool) {
		for _, part := range parts {
			if strings.HasPrefix(part.MimeType, "text/plain") && part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data), true
			}
			if len(part.Parts) > 0 {
				if body, ok := find(part.Parts); ok {
					return body, true
				}
			}
		}
		return "", false
	}

	body, _ := find(payload.Parts)
	return body
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Gmail sometimes omits padding
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return strings.ToValidUTF8(string(decoded), "")
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

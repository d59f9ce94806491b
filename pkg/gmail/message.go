package gmail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	agentdomain "inbox-agent/internal/agent/domain"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// BuildReply renders reply as a text/plain RFC 5322 message threaded onto the original.
func BuildReply(reply *agentdomain.Reply) ([]byte, error) {
	if reply == nil {
		return nil, errors.New("reply is nil")
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.SetSubject(ReplySubject(reply.Subject))

	if reply.To != "" {
		if addrs, err := mail.ParseAddressList(reply.To); err == nil && len(addrs) > 0 {
			h.SetAddressList("To", addrs)
		} else {
			h.Set("To", reply.To)
		}
	}
	if reply.InReplyTo != "" {
		h.Set("In-Reply-To", reply.InReplyTo)
		h.Set("References", reply.InReplyTo)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("unable to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, reply.Body); err != nil {
		return nil, fmt.Errorf("unable to write reply body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("unable to finish reply: %w", err)
	}
	return buf.Bytes(), nil
}

// ReplySubject prefixes "Re: " unless the subject already has it.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	if subject == "" {
		return "Re:"
	}
	return "Re: " + subject
}

// ParseRFC822 extracts the subject and the first text/plain body of a raw message.
func ParseRFC822(raw []byte) (subject, body string, err error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("unable to parse message: %w", err)
	}
	defer mr.Close()

	subject, _ = mr.Header.Subject()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return subject, body, fmt.Errorf("unable to read message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return subject, body, fmt.Errorf("unable to read message body: %w", err)
		}
		return subject, string(data), nil
	}
	return subject, "", nil
}

// Package gmail implements the notification collaborator over the Gmail v1
// API. Messages are rendered from embedded HTML templates and sent as
// multipart MIME with a plain-text alternative.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"

	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/hiring-engine/internal/collab"
)

// Gmail quotas are counted in units; 2 sends/s stays well clear of them.
const (
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 5
)

// Mailer sends templated messages from one sender address.
type Mailer struct {
	svc     *gmail.Service
	sender  mail.Address
	company string
	limiter *rate.Limiter
}

var _ collab.Notifier = (*Mailer)(nil)

// New builds a mailer from a credentials file.
func New(ctx context.Context, credentialsFile, sender, company string, opts ...option.ClientOption) (*Mailer, error) {
	base := []option.ClientOption{option.WithScopes(gmail.GmailSendScope)}
	if credentialsFile != "" {
		base = append(base, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gmail.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return NewWithService(svc, sender, company), nil
}

// NewWithService wraps an existing Gmail service.
func NewWithService(svc *gmail.Service, sender, company string) *Mailer {
	return &Mailer{
		svc:     svc,
		sender:  mail.Address{Name: company, Address: sender},
		company: company,
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
	}
}

// Send renders and delivers msg.
func (m *Mailer) Send(ctx context.Context, msg collab.Message) error {
	payload := make(map[string]string, len(msg.Payload)+2)
	for k, v := range msg.Payload {
		payload[k] = v
	}
	if payload["company_name"] == "" {
		payload["company_name"] = m.company
	}
	if payload["recipient_name"] == "" {
		payload["recipient_name"] = msg.Recipient.Name
	}

	rendered, err := Render(msg.Template, payload)
	if err != nil {
		return err
	}
	raw, err := Compose(m.sender, mail.Address{Name: msg.Recipient.Name, Address: msg.Recipient.Email}, rendered, msg.Attachments)
	if err != nil {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = m.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", msg.Template, msg.Recipient.Email, err)
	}
	return nil
}

// Compose builds an RFC 5322 message: multipart/mixed wrapping a
// multipart/alternative body and any attachments.
func Compose(from, to mail.Address, r *Rendered, attachments []collab.Attachment) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", r.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", r.Text},
		{"text/html; charset=utf-8", r.HTML},
	} {
		w, err := altWriter.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("failed to write body part: %w", err)
		}
	}
	if err := altWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close body: %w", err)
	}

	body, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary())},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alternative part: %w", err)
	}
	if _, err := body.Write(alt.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write alternative part: %w", err)
	}

	for _, a := range attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", a.Filename, err)
		}
		if err := writeBase64Lines(w, a.Data); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", a.Filename, err)
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

// writeBase64Lines wraps encoded data at 76 columns as MIME requires.
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/hiring-engine/internal/collab"
)

func TestRenderTemplates(t *testing.T) {
	payload := map[string]string{
		"recipient_name": "Ada",
		"candidate_name": "Grace Hopper",
		"role_name":      "Backend Engineer",
		"round_type":     "Technical",
		"round_index":    "1",
		"start":          "2026-04-01T09:00:00Z",
		"end":            "2026-04-01T10:00:00Z",
		"time_zone":      "UTC",
		"interviewers":   "Ada Lovelace",
		"company_name":   "Acme & Co",
		"compensation":   "120000 USD",
		"hr_name":        "Hana",
		"hr_email":       "hana@acme.test",
	}

	for _, name := range []string{
		collab.TemplateInvitation,
		collab.TemplateRescheduled,
		collab.TemplateCancelled,
		collab.TemplateOfferLetter,
	} {
		t.Run(name, func(t *testing.T) {
			r, err := Render(name, payload)
			require.NoError(t, err)
			assert.NotEmpty(t, r.Subject)
			assert.Contains(t, r.HTML, "<html>")
			assert.NotContains(t, r.Text, "<")
			assert.NotContains(t, r.Text, "<no value>")
		})
	}

	r, err := Render(collab.TemplateOfferLetter, payload)
	require.NoError(t, err)
	assert.Equal(t, "Your offer for Backend Engineer at Acme & Co", r.Subject)
	assert.Contains(t, r.Text, "Compensation: 120000 USD")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestPlainText(t *testing.T) {
	text, err := PlainText(`<html><body><p>Hello   <b>there</b></p><p>Line<br>two</p><table><tr><td>Start</td><td>9am</td></tr></table></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello there\nLine\ntwo\nStart 9am", text)
}

func TestComposeWithAttachment(t *testing.T) {
	raw, err := Compose(
		mail.Address{Name: "Acme", Address: "jobs@acme.test"},
		mail.Address{Name: "Grace", Address: "grace@example.com"},
		&Rendered{Subject: "Offer", HTML: "<p>Hi</p>", Text: "Hi"},
		[]collab.Attachment{{Filename: "offer.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}},
	)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "Offer", msg.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])
	alt, err := reader.NextPart()
	require.NoError(t, err)
	assert.Contains(t, alt.Header.Get("Content-Type"), "multipart/alternative")

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "offer.pdf", attachment.FileName())
	encoded, err := io.ReadAll(attachment)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(decoded))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMailerSend(t *testing.T) {
	var sent gmail.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	svc, err := gmail.NewService(context.Background(), option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	mailer := NewWithService(svc, "jobs@acme.test", "Acme")

	err = mailer.Send(context.Background(), collab.Message{
		Template:  collab.TemplateCancelled,
		Recipient: collab.Attendee{Name: "Grace", Email: "grace@example.com"},
		Payload:   map[string]string{"candidate_name": "Grace", "role_name": "SRE", "round_type": "HR", "round_index": "3"},
	})
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(sent.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "To: \"Grace\" <grace@example.com>")
	assert.Contains(t, string(raw), "Acme Recruiting")
}

package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Message is a fetched inbound email, reduced to what the intake pipeline
// consumes. Ephemeral: constructed per notification, discarded afterwards.
type Message struct {
	ID          string
	ThreadID    string
	From        string // bare address
	FromName    string
	Subject     string
	Body        string // plain text
	RFC822MsgID string // Message-ID header, used for In-Reply-To threading
	ReceivedAt  time.Time
	Images      []Image
}

// Image is an inline or attached image extracted from a message.
type Image struct {
	Filename string
	MimeType string
	Data     []byte
}

// Attachment is an outbound file attached to a reply (e.g. an invoice PDF).
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Service wraps the Gmail API for the single monitored shop mailbox. Auth is
// an OAuth refresh token; the oauth2 token source refreshes access tokens
// transparently.
type Service struct {
	clientID     string
	clientSecret string
	refreshToken string
	address      string // the watched mailbox address, used as From
}

func NewService(clientID, clientSecret, refreshToken, address string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		address:      address,
	}
}

func (s *Service) gmailService(ctx context.Context) (*gmail.Service, error) {
	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailModifyScope},
	}

	token := &oauth2.Token{
		RefreshToken: s.refreshToken,
		Expiry:       time.Now(), // force refresh on first use
	}

	client := oauth2.NewClient(ctx, config.TokenSource(ctx, token))

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// FetchMessage retrieves and parses a single message by provider ID.
func (s *Service) FetchMessage(ctx context.Context, messageID string) (*Message, error) {
	srv, err := s.gmailService(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to fetch message %s: %v", messageID, err)
	}

	from := getHeader(msg.Payload.Headers, "From")
	fromName, fromAddr := splitAddress(from)

	m := &Message{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		From:        fromAddr,
		FromName:    fromName,
		Subject:     getHeader(msg.Payload.Headers, "Subject"),
		Body:        extractPlainBody(msg.Payload),
		RFC822MsgID: getHeader(msg.Payload.Headers, "Message-ID"),
		ReceivedAt:  time.Unix(msg.InternalDate/1000, 0),
	}

	// Image attachments ride along for AI context (sketches, site photos).
	for _, att := range findImageParts(msg.Payload) {
		data, err := s.fetchAttachment(srv, messageID, att.Body.AttachmentId)
		if err != nil {
			log.Printf("[Gmail] Failed to fetch attachment %s on %s: %v", att.Filename, messageID, err)
			continue
		}
		m.Images = append(m.Images, Image{Filename: att.Filename, MimeType: att.MimeType, Data: data})
	}

	return m, nil
}

func (s *Service) fetchAttachment(srv *gmail.Service, messageID, attachmentID string) ([]byte, error) {
	att, err := srv.Users.Messages.Attachments.Get("me", messageID, attachmentID).Do()
	if err != nil {
		return nil, err
	}
	return base64.URLEncoding.DecodeString(att.Data)
}

// SendReply sends a threaded plain-text reply, optionally with attachments.
// threadID and inReplyTo come from the original inbound message.
func (s *Service) SendReply(ctx context.Context, to, subject, body, threadID, inReplyTo string, attachments []Attachment) error {
	srv, err := s.gmailService(ctx)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var emailMsg bytes.Buffer
	boundary := "signdesk_boundary"

	emailMsg.WriteString(fmt.Sprintf("From: %s\r\n", s.address))
	emailMsg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	// Encode subject to handle non-ASCII characters (RFC 2047)
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	emailMsg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	if inReplyTo != "" {
		emailMsg.WriteString(fmt.Sprintf("In-Reply-To: %s\r\n", inReplyTo))
		emailMsg.WriteString(fmt.Sprintf("References: %s\r\n", inReplyTo))
	}
	emailMsg.WriteString("MIME-Version: 1.0\r\n")
	emailMsg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary))

	// Body
	emailMsg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	emailMsg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	emailMsg.WriteString(body)
	emailMsg.WriteString("\r\n")

	// Attachments
	for _, att := range attachments {
		encodedContent := base64.StdEncoding.EncodeToString(att.Data)

		emailMsg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		emailMsg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", att.MimeType, att.Filename))
		emailMsg.WriteString("Content-Transfer-Encoding: base64\r\n")
		emailMsg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", att.Filename))

		// Split base64 into lines of 76 characters
		for i := 0; i < len(encodedContent); i += 76 {
			end := i + 76
			if end > len(encodedContent) {
				end = len(encodedContent)
			}
			emailMsg.WriteString(encodedContent[i:end] + "\r\n")
		}
	}

	emailMsg.WriteString(fmt.Sprintf("--%s--", boundary))

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(emailMsg.Bytes()),
		ThreadId: threadID,
	}

	if _, err := srv.Users.Messages.Send("me", msg).Do(); err != nil {
		return fmt.Errorf("unable to send reply: %v", err)
	}
	return nil
}

// ListNewMessageIDs returns IDs of messages added since startHistoryID along
// with the latest history ID to store as the new cursor.
func (s *Service) ListNewMessageIDs(ctx context.Context, startHistoryID uint64) ([]string, uint64, error) {
	srv, err := s.gmailService(ctx)
	if err != nil {
		return nil, 0, err
	}

	var ids []string
	latest := startHistoryID
	pageToken := ""
	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			LabelId("INBOX")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, 0, fmt.Errorf("unable to list history: %v", err)
		}

		for _, h := range resp.History {
			if h.Id > latest {
				latest = h.Id
			}
			for _, added := range h.MessagesAdded {
				if added.Message != nil {
					ids = append(ids, added.Message.Id)
				}
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return ids, latest, nil
}

// Watch (re)registers push notifications for the inbox on the given Pub/Sub
// topic and returns the baseline history ID.
func (s *Service) Watch(ctx context.Context, topicName string) (uint64, error) {
	srv, err := s.gmailService(ctx)
	if err != nil {
		return 0, err
	}

	// Stop any existing watch first to avoid "only one user push notification
	// client allowed" errors. Failure here is harmless.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	log.Printf("[Gmail] Starting watch on topic: %s", topicName)
	resp, err := srv.Users.Watch("me", req).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %v", err)
	}
	log.Printf("[Gmail] Watch started. Expiration: %d, HistoryId: %d", resp.Expiration, resp.HistoryId)

	return resp.HistoryId, nil
}

// Stop stops push notifications for the mailbox.
func (s *Service) Stop(ctx context.Context) error {
	srv, err := s.gmailService(ctx)
	if err != nil {
		return err
	}
	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %v", err)
	}
	return nil
}

// Helper functions

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// splitAddress parses "Name <email@example.com>" into its two halves.
func splitAddress(from string) (name, addr string) {
	if idx := strings.Index(from, "<"); idx >= 0 {
		name = strings.TrimSpace(strings.Trim(from[:idx], `" `))
		addr = strings.TrimSpace(strings.Trim(from[idx:], "<> "))
		return name, addr
	}
	return "", strings.TrimSpace(from)
}

func extractPlainBody(payload *gmail.MessagePart) string {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" && strings.HasPrefix(payload.MimeType, "text/") {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}

	var plainBody string
	var htmlBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			switch part.MimeType {
			case "text/plain":
				if plainBody == "" && part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						plainBody = string(data)
					}
				}
			case "text/html":
				if htmlBody == "" && part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						htmlBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody
	}
	// Fall back to tag-stripped HTML when no text/plain part exists.
	return stripHTML(htmlBody)
}

func stripHTML(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	text := b.String()
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	return strings.Join(strings.Fields(text), " ")
}

func findImageParts(payload *gmail.MessagePart) []*gmail.MessagePart {
	var images []*gmail.MessagePart

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if strings.HasPrefix(part.MimeType, "image/") && part.Body != nil && part.Body.AttachmentId != "" {
				images = append(images, part)
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return images
}

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// sendMail request types for Graph API JSON serialization.
// Field names follow the Graph sendMail schema exactly.
type sendMailRequest struct {
	Message         Message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

// Message is an email message in the shape the sendMail endpoint accepts.
type Message struct {
	Subject      string       `json:"subject"`
	Body         ItemBody     `json:"body"`
	ToRecipients []Recipient  `json:"toRecipients"`
	Attachments  []Attachment `json:"attachments"`
}

// ItemBody is the message body. ContentType is "Text" or "HTML".
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Recipient wraps an email address.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailAddress is a bare address.
type EmailAddress struct {
	Address string `json:"address"`
}

// Attachment is a file attachment. ContentBytes carries the base64-encoded
// file content; ODataType must be "#microsoft.graph.fileAttachment".
type Attachment struct {
	ODataType    string `json:"@odata.type"` //nolint:tagliatelle // Graph API annotation key
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// FileAttachmentType is the OData discriminator for file attachments.
const FileAttachmentType = "#microsoft.graph.fileAttachment"

// SendMail posts a message to the authenticated user's sendMail action.
// The message is always saved to Sent Items. Exactly one outbound email per
// call; provider-side delivery semantics are opaque to kindlepost.
func (c *Client) SendMail(ctx context.Context, msg Message) error {
	payload := sendMailRequest{
		Message:         msg,
		SaveToSentItems: true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("graph: encoding sendMail request: %w", err)
	}

	c.logger.Info("sending mail",
		slog.String("subject", msg.Subject),
		slog.Int("recipients", len(msg.ToRecipients)),
		slog.Int("attachments", len(msg.Attachments)),
	)

	resp, err := c.Do(ctx, http.MethodPost, "/me/sendMail", bytes.NewReader(body))
	if err != nil {
		return err
	}

	// Graph replies 202 Accepted with no body; drain and close anyway.
	resp.Body.Close()

	return nil
}

package delivery

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/kindlepost/kindlepost/internal/graph"
)

// attachmentContentType is used for every attachment. Kindle's ingestion
// sniffs the format from the file itself, so a generic type is fine.
const attachmentContentType = "application/octet-stream"

// Mailer builds and sends one email-with-attachment per file through the
// Graph client. The payload is transient — constructed per send attempt,
// never persisted.
type Mailer struct {
	client     *graph.Client
	recipients []string
	subject    string
	logger     *slog.Logger
}

// NewMailer creates a Mailer delivering to the given recipient addresses.
func NewMailer(client *graph.Client, recipients []string, subject string, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Mailer{
		client:     client,
		recipients: recipients,
		subject:    subject,
		logger:     logger,
	}
}

// SendFile reads the file fully into memory, base64-encodes it, and posts
// it as a single attachment to every configured recipient. A file that
// vanished between enumeration and read surfaces here as an open error.
func (m *Mailer) SendFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("delivery: reading %s: %w", path, err)
	}

	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("delivery: no filename in path %q", path)
	}

	// NFC-normalize the attachment name; macOS filesystems hand out NFD
	// and Kindle inboxes occasionally mangle decomposed names.
	name = norm.NFC.String(name)

	recipients := make([]graph.Recipient, 0, len(m.recipients))
	for _, addr := range m.recipients {
		recipients = append(recipients, graph.Recipient{
			EmailAddress: graph.EmailAddress{Address: addr},
		})
	}

	msg := graph.Message{
		Subject: m.subject,
		Body: graph.ItemBody{
			ContentType: "Text",
			Content:     "",
		},
		ToRecipients: recipients,
		Attachments: []graph.Attachment{{
			ODataType:    graph.FileAttachmentType,
			Name:         name,
			ContentType:  attachmentContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(data),
		}},
	}

	m.logger.Debug("built payload",
		slog.String("file", name),
		slog.Int("size_bytes", len(data)),
	)

	return m.client.SendMail(ctx, msg)
}

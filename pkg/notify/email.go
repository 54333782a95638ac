package notify

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// maxAttachmentBytes keeps the message under common SMTP relay limits.
const maxAttachmentBytes = 20 * 1024 * 1024

// EmailSender delivers completion mail with rendered documents attached.
type EmailSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

// NewEmailSenderFromEnv reads SMTP settings from the environment. The
// sender is disabled (IsConfigured false) when host, user, or password is
// missing.
func NewEmailSenderFromEnv() *EmailSender {
	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	s := &EmailSender{
		host:     os.Getenv("SMTP_HOST"),
		port:     port,
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
	if s.from == "" {
		s.from = s.user
	}
	return s
}

func (s *EmailSender) IsConfigured() bool {
	return s.host != "" && s.user != "" && s.password != ""
}

// SendCompleted mails the rendered documents for a finished job. Attachments
// over the size cap are reduced to the most useful set.
func (s *EmailSender) SendCompleted(to, cc, jobName string, attachments []string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("smtp not configured")
	}
	if to == "" {
		return fmt.Errorf("no recipient")
	}

	selected := selectAttachments(attachments)
	if len(selected) == 0 {
		return fmt.Errorf("no attachable documents")
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Your recording %q has been processed.\r\n\r\nAttached are %d documents:\r\n\r\n", jobName, len(selected))
	for i, path := range selected {
		info, err := os.Stat(path)
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&body, "%d. %s (%d KB)\r\n", i+1, filepath.Base(path), size/1024)
	}

	msg, err := buildMessage(s.from, to, cc, "Processed: "+jobName, body.String(), selected)
	if err != nil {
		return err
	}

	recipients := []string{to}
	if cc != "" {
		recipients = append(recipients, cc)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.from, recipients, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	slog.Info("Completion email sent", "to", to, "attachments", len(selected))
	return nil
}

// selectAttachments keeps the full set when it fits under the cap,
// otherwise prefers the cheat sheet and analysis documents, and as a last
// resort the two smallest files.
func selectAttachments(paths []string) []string {
	type entry struct {
		path string
		size int64
	}
	var entries []entry
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			slog.Warn("Skipping unreadable attachment", "path", p, "error", err)
			continue
		}
		entries = append(entries, entry{p, info.Size()})
		total += info.Size()
	}
	if len(entries) == 0 {
		return nil
	}
	if total <= maxAttachmentBytes {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.path
		}
		return out
	}

	slog.Warn("Attachments over size cap, reducing set",
		"total_mb", float64(total)/(1024*1024))
	var priority []string
	for _, e := range entries {
		name := strings.ToLower(filepath.Base(e.path))
		if strings.Contains(name, "cheatsheet") || strings.Contains(name, "cheat_sheet") || strings.Contains(name, "analysis") {
			priority = append(priority, e.path)
		}
	}
	if len(priority) > 0 {
		return priority
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].size < entries[j].size })
	n := min(2, len(entries))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].path
	}
	return out
}

// buildMessage assembles a multipart/mixed MIME message with base64
// attachments.
func buildMessage(from, to, cc, subject, body string, attachments []string) ([]byte, error) {
	const boundary = "voxpipe-mail-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if cc != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", cc)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	for _, path := range attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to attach file", "path", path, "error", err)
			continue
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: application/octet-stream\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(path))

		encoded := base64.StdEncoding.EncodeToString(data)
		for len(encoded) > 76 {
			b.WriteString(encoded[:76])
			b.WriteString("\r\n")
			encoded = encoded[76:]
		}
		b.WriteString(encoded)
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String()), nil
}

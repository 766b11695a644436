package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
)

const crlf = "\r\n"

// compose renders the email into wire-ready RFC 5322 bytes. A raw MIME
// payload is passed through verbatim; otherwise the body structure depends on
// what content is present: multipart/mixed when attachments exist,
// multipart/alternative when both text and HTML bodies are set, and a single
// text part otherwise.
func compose(email *delivery.Email) ([]byte, error) {
	if len(email.RawMIME) > 0 {
		return email.RawMIME, nil
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", email.From.String())
	writeHeader(&buf, "To", email.To.String())
	if len(email.CC) > 0 {
		writeHeader(&buf, "Cc", formatAddressList(email.CC))
	}
	if email.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", email.ReplyTo)
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	writeHeader(&buf, "Date", time.Now().Format(time.RFC1123Z))
	for _, h := range email.Headers {
		writeHeader(&buf, h.Name, h.Value)
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	switch {
	case len(email.Attachments) > 0:
		if err := writeMixed(&buf, email); err != nil {
			return nil, err
		}
	case email.HTML != "" && email.Text != "":
		if err := writeAlternative(&buf, email.Text, email.HTML); err != nil {
			return nil, err
		}
	case email.HTML != "":
		writeSinglePart(&buf, "text/html", email.HTML)
	default:
		writeSinglePart(&buf, "text/plain", email.Text)
	}

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString(crlf)
}

func writeSinglePart(buf *bytes.Buffer, contentType, body string) {
	writeHeader(buf, "Content-Type", contentType+`; charset="UTF-8"`)
	buf.WriteString(crlf)
	buf.WriteString(body)
	buf.WriteString(crlf)
}

// writeAlternative emits a multipart/alternative body: plain text first, then
// the HTML rendition clients prefer.
func writeAlternative(buf *bytes.Buffer, text, html string) error {
	mw := multipart.NewWriter(buf)
	writeHeader(buf, "Content-Type", `multipart/alternative; boundary="`+mw.Boundary()+`"`)
	buf.WriteString(crlf)

	if err := writeTextPart(mw, "text/plain", text); err != nil {
		return err
	}
	if err := writeTextPart(mw, "text/html", html); err != nil {
		return err
	}
	return mw.Close()
}

// writeMixed wraps the body (alternative or single) and attachment parts in
// a multipart/mixed container.
func writeMixed(buf *bytes.Buffer, email *delivery.Email) error {
	mw := multipart.NewWriter(buf)
	writeHeader(buf, "Content-Type", `multipart/mixed; boundary="`+mw.Boundary()+`"`)
	buf.WriteString(crlf)

	if err := writeBodyPart(mw, email); err != nil {
		return err
	}
	for _, att := range email.Attachments {
		if err := writeAttachmentPart(mw, att); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeBodyPart(mw *multipart.Writer, email *delivery.Email) error {
	if email.HTML != "" && email.Text != "" {
		// Nested multipart/alternative inside the mixed container.
		var inner bytes.Buffer
		iw := multipart.NewWriter(&inner)
		if err := writeTextPart(iw, "text/plain", email.Text); err != nil {
			return err
		}
		if err := writeTextPart(iw, "text/html", email.HTML); err != nil {
			return err
		}
		if err := iw.Close(); err != nil {
			return err
		}

		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Type", `multipart/alternative; boundary="`+iw.Boundary()+`"`)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return err
		}
		_, err = part.Write(inner.Bytes())
		return err
	}

	contentType, body := "text/plain", email.Text
	if email.HTML != "" {
		contentType, body = "text/html", email.HTML
	}
	return writeTextPart(mw, contentType, body)
}

func writeTextPart(mw *multipart.Writer, contentType, body string) error {
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Type", contentType+`; charset="UTF-8"`)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = io.WriteString(part, body+crlf)
	return err
}

func writeAttachmentPart(mw *multipart.Writer, att delivery.Attachment) error {
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Type", fmt.Sprintf("%s; name=%q", contentType, att.Filename))
	hdr.Set("Content-Transfer-Encoding", "base64")
	hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))

	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = part.Write(wrapBase64(att.Content))
	return err
}

// wrapBase64 encodes content and folds it into 76-character lines.
func wrapBase64(content []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(content)
	var b strings.Builder
	b.Grow(len(encoded) + len(encoded)/76*2 + 2)
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString(crlf)
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	return []byte(b.String())
}

func formatAddressList(addrs []mailaddr.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

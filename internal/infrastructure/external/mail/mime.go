package mail

import (
	"bytes"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
)

// Message is a plain-text email rendered to RFC 5322
type Message struct {
	MessageID string
	Raw       []byte
}

// BuildMessage renders in as a plain-text message from the given sender. The
// reply headers keep the message in the counterpart's thread.
func BuildMessage(from mail.Address, in providers.SendInput, domain string) Message {
	msgID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)

	var b bytes.Buffer
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	header("From", from.String())
	header("To", strings.Join(in.To, ", "))
	header("Cc", strings.Join(in.Cc, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", in.Subject))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("Message-ID", msgID)
	if in.ReplyToID != "" {
		ref := angle(in.ReplyToID)
		header("In-Reply-To", ref)
		header("References", ref)
	}
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(in.Body, "\n", "\r\n"))

	return Message{MessageID: msgID, Raw: b.Bytes()}
}

func angle(id string) string {
	if strings.HasPrefix(id, "<") {
		return id
	}
	return "<" + id + ">"
}

// DomainOf returns the domain part of an address, for Message-ID generation
func DomainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

package whatsapp

import (
	"strings"

	"github.com/arafat-telecom/chatbot/core/ingress"
)

type webhookPayload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID      string   `json:"id"`
	Changes []change `json:"changes"`
}

type change struct {
	Field string      `json:"field"`
	Value changeValue `json:"value"`
}

type changeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []message `json:"messages"`
}

type message struct {
	ID   string    `json:"id"`
	From string    `json:"from"`
	Type string    `json:"type"`
	Text *textBody `json:"text"`
}

// textMessages flattens every text message in p. Messages of other types and
// messages without a usable sender are skipped.
func (p webhookPayload) textMessages() (msgs []ingress.Message, skipped int) {
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				if m.Type != "text" || m.Text == nil {
					skipped++
					continue
				}
				sender := NormalizePhone(m.From)
				if sender == "" {
					skipped++
					continue
				}
				msgs = append(msgs, ingress.Message{
					Transport: Name,
					ID:        m.ID,
					SenderID:  sender,
					Text:      strings.TrimSpace(m.Text.Body),
				})
			}
		}
	}
	return msgs, skipped
}

// NormalizePhone keeps only the ASCII digits of a phone number.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

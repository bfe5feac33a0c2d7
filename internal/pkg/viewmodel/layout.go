package viewmodel

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Layout carries what the shared page chrome needs: title, navbar state and
// the one-shot flash message.
type Layout struct {
	Page          string
	FromProtected bool
	Email         string
	Avatar        string
	PlanBadge     string
	CSRF          string
	Msg           *Message
}

// Message is a flash message read back from the redirect cookie.
type Message struct {
	Type string
	Text string
}

func (m *Message) IsError() bool {
	return m != nil && m.Type == "error"
}

// MessageFromMap converts the map stored by the flash middleware.
func MessageFromMap(m fiber.Map) *Message {
	if len(m) == 0 {
		return nil
	}
	text, ok := m["message"]
	if !ok || text == nil || fmt.Sprint(text) == "" {
		return nil
	}
	msg := &Message{Type: "info", Text: fmt.Sprint(text)}
	if t, ok := m["type"]; ok && t != nil {
		msg.Type = fmt.Sprint(t)
	}
	return msg
}

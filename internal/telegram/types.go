// Package telegram holds the subset of the Telegram Bot API used by the webhook.
package telegram

import "strconv"

// MethodSendMessage is the Bot API method answered inline from a webhook.
const MethodSendMessage = "sendMessage"

// Update is an inbound webhook delivery.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Message is a chat message. Only the fields the bot reads are decoded.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// User is the message author.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// EffectiveMessage returns the new message, or the edited one when there is
// no new message. A message without a chat id counts as absent, so
// {"message":{}} falls through to edited_message. It returns nil when the
// update carries neither.
func (u Update) EffectiveMessage() *Message {
	if u.Message.present() {
		return u.Message
	}
	if u.EditedMessage.present() {
		return u.EditedMessage
	}
	return nil
}

func (m *Message) present() bool {
	return m != nil && m.Chat.ID != 0
}

// ChatID returns the chat id in the string form used for allow-lists and rows.
func (m *Message) ChatID() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

// Reply is returned as the webhook response body; Telegram executes it as a sendMessage call.
type Reply struct {
	Method string `json:"method"`
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// NewReply builds a sendMessage reply.
func NewReply(chatID, text string) *Reply {
	return &Reply{
		Method: MethodSendMessage,
		ChatID: chatID,
		Text:   text,
	}
}

package router

import "context"

// EventKind identifies what the transport delivered.
type EventKind int

const (
	EventChannelPost EventKind = iota + 1
	EventEditedChannelPost
	EventPrivateText
	EventPrivateForward
	EventButtonPress
)

// MessageRef addresses one message in one chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// ForwardOrigin is the original location of a forwarded message.
// ChatID is 0 when the origin is a user rather than a chat or channel.
type ForwardOrigin struct {
	ChatID    int64
	MessageID int
}

// ButtonPress carries the callback data of an inline button and the message
// the button belongs to.
type ButtonPress struct {
	Data    string
	Message MessageRef
}

// Event is one inbound update, already decoded from the transport's format.
type Event struct {
	ID        string // transport delivery id
	Kind      EventKind
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string // text, or the caption of a media message
	HasMedia  bool   // video or document attached
	Forward   *ForwardOrigin
	Button    *ButtonPress
}

// Message is an outbound message the transport created.
type Message struct {
	Ref  MessageRef
	Text string // caption, or text when there is no caption
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// SendOptions carries optional reply markup. All texts are HTML.
type SendOptions struct {
	Keyboard [][]Button
}

// Transport performs outbound chat actions.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, opts *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opts *SendOptions) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) error
	ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (*Message, error)
}

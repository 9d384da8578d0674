package telegram

import (
	"strconv"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/codebot/internal/router"
)

// toEvent decodes an update into a router event. It returns false for update
// types the bot does not act on.
func toEvent(u telego.Update) (router.Event, bool) {
	id := strconv.Itoa(u.UpdateID)

	switch {
	case u.ChannelPost != nil:
		return channelEvent(id, router.EventChannelPost, u.ChannelPost), true

	case u.EditedChannelPost != nil:
		return channelEvent(id, router.EventEditedChannelPost, u.EditedChannelPost), true

	case u.Message != nil:
		return privateEvent(id, u.Message)

	case u.CallbackQuery != nil:
		return buttonEvent(id, u.CallbackQuery)
	}
	return router.Event{}, false
}

func channelEvent(id string, kind router.EventKind, msg *telego.Message) router.Event {
	return router.Event{
		ID:        id,
		Kind:      kind,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Caption,
		HasMedia:  msg.Video != nil || msg.Document != nil,
	}
}

func privateEvent(id string, msg *telego.Message) (router.Event, bool) {
	if msg.Chat.Type != telego.ChatTypePrivate || msg.From == nil {
		return router.Event{}, false
	}

	ev := router.Event{
		ID:        id,
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		MessageID: msg.MessageID,
		HasMedia:  msg.Video != nil || msg.Document != nil,
	}

	if origin := extractForwardOrigin(msg); origin != nil {
		ev.Kind = router.EventPrivateForward
		ev.Forward = origin
		ev.Text = msg.Caption
		if ev.Text == "" {
			ev.Text = msg.Text
		}
		return ev, true
	}

	if msg.Text == "" {
		return router.Event{}, false
	}
	ev.Kind = router.EventPrivateText
	ev.Text = msg.Text
	return ev, true
}

func buttonEvent(id string, q *telego.CallbackQuery) (router.Event, bool) {
	if q.Message == nil {
		return router.Event{}, false
	}
	chat := q.Message.GetChat()
	return router.Event{
		ID:     id,
		Kind:   router.EventButtonPress,
		ChatID: chat.ID,
		UserID: q.From.ID,
		Button: &router.ButtonPress{
			Data:    q.Data,
			Message: router.MessageRef{ChatID: chat.ID, MessageID: q.Message.GetMessageID()},
		},
	}, true
}

// extractForwardOrigin returns where a forwarded message came from. Only
// channel origins carry the original message id; user origins report chat 0.
func extractForwardOrigin(msg *telego.Message) *router.ForwardOrigin {
	if msg.ForwardOrigin == nil {
		return nil
	}

	switch origin := msg.ForwardOrigin.(type) {
	case *telego.MessageOriginChannel:
		return &router.ForwardOrigin{ChatID: origin.Chat.ID, MessageID: origin.MessageID}
	case *telego.MessageOriginChat:
		return &router.ForwardOrigin{ChatID: origin.SenderChat.ID}
	case *telego.MessageOriginUser, *telego.MessageOriginHiddenUser:
		return &router.ForwardOrigin{}
	}
	return nil
}

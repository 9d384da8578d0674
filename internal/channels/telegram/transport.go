package telegram

import (
	"context"
	"strings"
	"unicode/utf16"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/codebot/internal/router"
)

func (c *Channel) SendText(ctx context.Context, chatID int64, text string, opts *router.SendOptions) (router.MessageRef, error) {
	msg := tu.Message(tu.ID(chatID), clampText(text)).
		WithParseMode(telego.ModeHTML).
		WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true})
	if kb := inlineKeyboard(opts); kb != nil {
		msg = msg.WithReplyMarkup(kb)
	}

	sent, err := c.api.SendMessage(ctx, msg)
	if err != nil {
		return router.MessageRef{}, err
	}
	return router.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

// EditText replaces a message's text and keyboard. An edit that changes
// nothing is not an error.
func (c *Channel) EditText(ctx context.Context, ref router.MessageRef, text string, opts *router.SendOptions) error {
	params := tu.EditMessageText(tu.ID(ref.ChatID), ref.MessageID, clampText(text)).
		WithParseMode(telego.ModeHTML).
		WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true})
	if kb := inlineKeyboard(opts); kb != nil {
		params = params.WithReplyMarkup(kb)
	}

	if _, err := c.api.EditMessageText(ctx, params); err != nil && !isNotModified(err) {
		return err
	}
	return nil
}

func (c *Channel) DeleteMessage(ctx context.Context, ref router.MessageRef) error {
	return c.api.DeleteMessage(ctx, tu.Delete(tu.ID(ref.ChatID), ref.MessageID))
}

// CopyMessage copies a message without the "forwarded from" header,
// replacing its caption.
func (c *Channel) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) error {
	params := tu.CopyMessage(tu.ID(toChatID), tu.ID(fromChatID), messageID).
		WithCaption(caption).
		WithParseMode(telego.ModeHTML)
	_, err := c.api.CopyMessage(ctx, params)
	return err
}

func (c *Channel) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (*router.Message, error) {
	msg, err := c.api.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(toChatID),
		FromChatID: tu.ID(fromChatID),
		MessageID:  messageID,
	})
	if err != nil {
		return nil, err
	}
	text := msg.Caption
	if text == "" {
		text = msg.Text
	}
	return &router.Message{
		Ref:  router.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
		Text: text,
	}, nil
}

func inlineKeyboard(opts *router.SendOptions) *telego.InlineKeyboardMarkup {
	if opts == nil || len(opts.Keyboard) == 0 {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, 0, len(opts.Keyboard))
	for _, row := range opts.Keyboard {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(rows...)
}

// clampText cuts text to Telegram's message limit, which is counted in
// UTF-16 code units.
func clampText(text string) string {
	n := 0
	for i, r := range text {
		l := utf16.RuneLen(r)
		if n+l > telegramMaxMessageLen {
			return text[:i]
		}
		n += l
	}
	return text
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

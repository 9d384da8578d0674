package router

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/codebot/internal/codes"
	"github.com/nextlevelbuilder/codebot/internal/session"
	"github.com/nextlevelbuilder/codebot/internal/store"
)

// handleChannelPost indexes a media post from the source channel. Nothing is
// sent back to the channel.
func (r *Router) handleChannelPost(ctx context.Context, ev Event) error {
	n, err := store.Ingest(ctx, r.store, ev.MessageID, ev.Text)
	if n > 0 {
		codesIndexedTotal.WithLabelValues("channel").Add(float64(n))
	}
	if err != nil {
		return storageErr(opIngest, err)
	}
	if n > 0 {
		slog.Info("channel post indexed", "message_id", ev.MessageID, "codes", n, "edited", ev.Kind == EventEditedChannelPost)
	}
	return nil
}

func (r *Router) handleCommand(ctx context.Context, ev Event) error {
	admin := r.isAdmin(ev.UserID)

	switch commandName(ev.Text) {
	case "/start":
		if !admin {
			return r.reply(ctx, ev, greetingText, nil)
		}
		// Re-issuing the menu cancels any pending prompt.
		if err := r.sessions.Clear(ctx, ev.UserID); err != nil {
			return storageErr(opSession, err)
		}
		return r.reply(ctx, ev, adminMenuText(), adminMenuKeyboard())

	case "/cancel":
		if !admin {
			return nil
		}
		if err := r.sessions.Clear(ctx, ev.UserID); err != nil {
			return storageErr(opSession, err)
		}
		return r.reply(ctx, ev, "Cancelled. Use /start to open the menu.", nil)

	case "/help":
		return r.reply(ctx, ev, helpText, nil)
	}
	return nil
}

func (r *Router) handleButton(ctx context.Context, ev Event) error {
	ref := ev.Button.Message
	data := ev.Button.Data

	switch {
	case data == btnStats:
		total, err := r.store.Count(ctx)
		if err != nil {
			return storageErr(opMenu, err)
		}
		return r.edit(ctx, ref, statsText(total), nil)

	case data == btnList || strings.HasPrefix(data, btnList+":"):
		offset := parseListOffset(data)
		total, err := r.store.Count(ctx)
		if err != nil {
			return storageErr(opMenu, err)
		}
		entries, err := r.store.ListRecent(ctx, r.cfg.PageSize, offset)
		if err != nil {
			return storageErr(opMenu, err)
		}
		return r.edit(ctx, ref, renderList(entries, offset, total), listKeyboard(offset, r.cfg.PageSize, total))

	case data == btnSearch:
		if err := r.sessions.Set(ctx, ev.UserID, session.AwaitingSearchPattern); err != nil {
			return storageErr(opSession, err)
		}
		return r.edit(ctx, ref, searchPromptText, nil)

	case data == btnDelete:
		if err := r.sessions.Set(ctx, ev.UserID, session.AwaitingDeleteCode); err != nil {
			return storageErr(opSession, err)
		}
		return r.edit(ctx, ref, deletePromptText, nil)
	}

	slog.Debug("unknown button", "data", data)
	return nil
}

func (r *Router) edit(ctx context.Context, ref MessageRef, text string, opts *SendOptions) error {
	if err := r.transport.EditText(ctx, ref, text, opts); err != nil {
		return transportErr("edit", err)
	}
	return nil
}

// handleForward indexes a channel message the administrator forwarded,
// using the message id from the forward origin rather than the copy's id.
func (r *Router) handleForward(ctx context.Context, ev Event) error {
	if ev.Forward.ChatID != r.cfg.ChannelID {
		return &Error{Kind: KindForeignChannel, Op: opForward}
	}
	if ev.Text == "" {
		return r.reply(ctx, ev, "This message has no caption to index.", nil)
	}

	n, err := store.Ingest(ctx, r.store, ev.Forward.MessageID, ev.Text)
	if n > 0 {
		codesIndexedTotal.WithLabelValues("forward").Add(float64(n))
	}
	if err != nil {
		return storageErr(opIngest, err)
	}
	if n == 0 {
		return r.reply(ctx, ev, "No codes found in this message.", nil)
	}
	return r.reply(ctx, ev, fmt.Sprintf("Indexed %d code(s) from this message!", n), nil)
}

func (r *Router) handlePendingSearch(ctx context.Context, ev Event) error {
	pattern := codes.NormalizeQuery(ev.Text)
	results, err := r.store.SearchByCode(ctx, pattern, store.DefaultSearchLimit)
	if err != nil {
		return storageErr(opSearch, err)
	}
	return r.reply(ctx, ev, renderSearch(results, r.cfg.ChannelID), nil)
}

func (r *Router) handlePendingDelete(ctx context.Context, ev Event) error {
	code := codes.NormalizeQuery(ev.Text)
	ok, err := r.store.Delete(ctx, code)
	if err != nil {
		return storageErr(opDelete, err)
	}
	if !ok {
		return &Error{Kind: KindNotFound, Op: opDelete, Code: code}
	}
	slog.Info("code deleted", "code", code, "user_id", ev.UserID)
	return r.reply(ctx, ev, fmt.Sprintf("Deleted <code>%s</code> from database", html.EscapeString(code)), nil)
}

// handlePermalink imports a message by its t.me/c/ link. The message is
// forwarded into the administrator's chat to read its caption, and that
// temporary copy is deleted afterwards whatever the outcome.
func (r *Router) handlePermalink(ctx context.Context, ev Event) error {
	link, _ := ParsePermalink(ev.Text)
	if link.ChannelID != r.cfg.ChannelID {
		return &Error{Kind: KindForeignChannel, Op: opPermalink}
	}

	msg, err := r.transport.ForwardMessage(ctx, ev.ChatID, r.cfg.ChannelID, link.MessageID)
	if err != nil {
		return transportErr(opPermalink, err)
	}
	defer func() {
		if err := r.transport.DeleteMessage(ctx, msg.Ref); err != nil {
			slog.Warn("failed to delete temporary forward", "message_id", msg.Ref.MessageID, "error", err)
		}
	}()

	if msg.Text == "" {
		return r.reply(ctx, ev, "The linked message has no caption.", nil)
	}

	n, err := store.Ingest(ctx, r.store, link.MessageID, msg.Text)
	if n > 0 {
		codesIndexedTotal.WithLabelValues("permalink").Add(float64(n))
	}
	if err != nil {
		return storageErr(opIngest, err)
	}
	return r.reply(ctx, ev, fmt.Sprintf("Indexed %d code(s) from the linked message!", n), nil)
}

// handlePlainCode looks a code up and delivers a copy of the source message.
// A status message is shown while the lookup runs; it is replaced by the
// outcome on miss or failure and removed after a successful copy.
func (r *Router) handlePlainCode(ctx context.Context, ev Event) error {
	code := codes.NormalizeQuery(ev.Text)

	status, err := r.transport.SendText(ctx, ev.ChatID, searchingText(code), nil)
	if err != nil {
		return transportErr(opLookup, err)
	}

	entry, err := r.store.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return r.finishStatus(ctx, status, &Error{Kind: KindNotFound, Op: opLookup, Code: code})
	}
	if err != nil {
		return r.finishStatus(ctx, status, storageErr(opLookup, err))
	}

	err = r.transport.CopyMessage(ctx, ev.ChatID, r.cfg.ChannelID, entry.SourceMessageID, foundCaption(code, entry.Caption))
	if err != nil {
		return r.finishStatus(ctx, status, &Error{Kind: KindTransport, Op: opLookup, Code: code, Err: err})
	}

	if err := r.transport.DeleteMessage(ctx, status); err != nil {
		slog.Debug("failed to delete status message", "error", err)
	}
	return nil
}

// finishStatus shows e in place of the status message and marks it replied.
// If the edit fails the router falls back to a fresh reply.
func (r *Router) finishStatus(ctx context.Context, status MessageRef, e *Error) error {
	if err := r.transport.EditText(ctx, status, describe(e), nil); err == nil {
		e.replied = true
	}
	return e
}

// handleFreeText rejects text that is neither a code nor a link. Free text
// from the administrator is ignored since it is often incidental.
func (r *Router) handleFreeText(_ context.Context, ev Event) error {
	if r.isAdmin(ev.UserID) {
		return nil
	}
	return &Error{Kind: KindInvalidCode}
}

// Package router turns inbound chat events into index operations and replies.
//
// Every event is classified into exactly one Route (see classify) and then
// dispatched through a single handler table. Handlers return *Error values;
// Handle logs them and renders the reply, so handlers only render success.
package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/codebot/internal/session"
	"github.com/nextlevelbuilder/codebot/internal/store"
)

// DefaultPageSize is the number of entries per List All page.
const DefaultPageSize = 20

var tracer = otel.Tracer("github.com/nextlevelbuilder/codebot/internal/router")

// Config identifies the source channel and the administrator.
type Config struct {
	ChannelID int64
	AdminID   int64
	PageSize  int
}

type handlerFunc func(r *Router, ctx context.Context, ev Event) error

var handlers = map[Route]handlerFunc{
	RouteChannelPost:    (*Router).handleChannelPost,
	RouteCommand:        (*Router).handleCommand,
	RouteButton:         (*Router).handleButton,
	RoutePrivateForward: (*Router).handleForward,
	RoutePendingSearch:  (*Router).handlePendingSearch,
	RoutePendingDelete:  (*Router).handlePendingDelete,
	RoutePermalink:      (*Router).handlePermalink,
	RoutePlainCode:      (*Router).handlePlainCode,
	RouteFreeText:       (*Router).handleFreeText,
}

// Router dispatches events. Events for one administrator must be handled
// sequentially; the store and session backends tolerate concurrent callers.
type Router struct {
	cfg       Config
	store     store.MediaStore
	sessions  session.Store
	transport Transport
}

// New creates a Router.
func New(cfg Config, st store.MediaStore, sessions session.Store, transport Transport) *Router {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Router{cfg: cfg, store: st, sessions: sessions, transport: transport}
}

func (r *Router) isAdmin(userID int64) bool {
	return userID != 0 && userID == r.cfg.AdminID
}

// Handle processes one event to completion. The returned error has already
// been logged and, where the event came from a private chat, shown to the
// user; it is returned for callers that want to count failures.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	log := slog.With("event_id", uuid.Must(uuid.NewV7()).String(), "delivery_id", ev.ID, "user_id", ev.UserID)

	// Only private text consumes a pending prompt. Take clears it atomically.
	pending := session.Idle
	if ev.Kind == EventPrivateText && !isCommand(ev.Text) && r.isAdmin(ev.UserID) {
		st, err := r.sessions.Take(ctx, ev.UserID)
		if err != nil {
			return r.fail(ctx, log, ev, session.Idle, &Error{Kind: KindStorageUnavailable, Op: opSession, Err: err})
		}
		pending = st
	}

	route := classify(ev, pending, r.isAdmin(ev.UserID), r.cfg.ChannelID)
	eventsTotal.WithLabelValues(route.String()).Inc()

	h, ok := handlers[route]
	if !ok {
		log.Debug("event ignored", "kind", ev.Kind, "chat_id", ev.ChatID)
		return nil
	}

	ctx, span := tracer.Start(ctx, "router."+route.String(), trace.WithAttributes(
		attribute.String("route", route.String()),
		attribute.Int64("chat_id", ev.ChatID),
	))
	defer span.End()

	log.Debug("event routed", "route", route.String(), "pending", pending.String())

	err := h(r, ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, KindOf(err).String())
		return r.fail(ctx, log, ev, pending, err)
	}
	return nil
}

// fail logs err, restores a consumed prompt when storage was the cause, and
// tells the user unless the handler already did or the event came from the
// channel itself.
func (r *Router) fail(ctx context.Context, log *slog.Logger, ev Event, pending session.State, err error) error {
	kind := KindOf(err)
	errorsTotal.WithLabelValues(kind.String()).Inc()

	switch kind {
	case KindStorageUnavailable, KindTransport, KindUnknown:
		log.Warn("request failed", "kind", kind.String(), "error", err)
	default:
		log.Debug("request rejected", "kind", kind.String(), "error", err)
	}

	// Keep the prompt so the administrator can resend the same input.
	if kind == KindStorageUnavailable && pending != session.Idle {
		if serr := r.sessions.Set(ctx, ev.UserID, pending); serr != nil {
			log.Warn("failed to restore pending prompt", "state", pending.String(), "error", serr)
		}
	}

	var re *Error
	if errors.As(err, &re) && re.replied {
		return err
	}
	if ev.Kind == EventChannelPost || ev.Kind == EventEditedChannelPost {
		return err
	}
	if _, serr := r.transport.SendText(ctx, ev.ChatID, describe(err), nil); serr != nil {
		log.Warn("failed to send error reply", "error", serr)
	}
	return err
}

// reply sends text to the event's chat.
func (r *Router) reply(ctx context.Context, ev Event, text string, opts *SendOptions) error {
	if _, err := r.transport.SendText(ctx, ev.ChatID, text, opts); err != nil {
		return transportErr("reply", err)
	}
	return nil
}

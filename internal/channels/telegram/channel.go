// Package telegram connects the router to the Telegram Bot API: long polling
// for inbound updates and Bot API calls for outbound actions.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/codebot/internal/router"
)

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, ev router.Event) error
}

// botAPI is the subset of *telego.Bot used for outbound calls.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	CopyMessage(ctx context.Context, params *telego.CopyMessageParams) (*telego.MessageID, error)
	ForwardMessage(ctx context.Context, params *telego.ForwardMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
	DeleteMyCommands(ctx context.Context, params *telego.DeleteMyCommandsParams) error
}

// Channel is the Telegram transport. It implements router.Transport.
type Channel struct {
	bot    *telego.Bot
	api    botAPI
	dedupe *updateDedupe
}

var _ router.Transport = (*Channel)(nil)

// New creates a Channel for the bot token. No network call is made until Run.
func New(token string) (*Channel, error) {
	bot, err := telego.NewBot(token, telego.WithLogger(slogLogger{}))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newChannel(bot, bot), nil
}

func newChannel(bot *telego.Bot, api botAPI) *Channel {
	return &Channel{
		bot:    bot,
		api:    api,
		dedupe: newUpdateDedupe(updateDedupeTTL, updateDedupeMax),
	}
}

// Run long-polls for updates and hands each one to h, one at a time, until
// ctx is cancelled.
func (c *Channel) Run(ctx context.Context, h Handler) error {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}

	if err := c.SyncMenuCommands(ctx, DefaultMenuCommands()); err != nil {
		slog.Warn("failed to register bot commands", "error", err)
	}

	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        pollTimeoutSeconds,
		AllowedUpdates: allowedUpdates,
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram polling started", "bot", me.Username)
	c.consume(ctx, updates, h)
	slog.Info("telegram polling stopped")
	return nil
}

// consume drains updates until the channel closes or ctx is done.
func (c *Channel) consume(ctx context.Context, updates <-chan telego.Update, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			c.dispatch(ctx, u, h)
		}
	}
}

func (c *Channel) dispatch(ctx context.Context, u telego.Update, h Handler) {
	if c.dedupe.seen(u.UpdateID) {
		slog.Debug("duplicate update skipped", "update_id", u.UpdateID)
		return
	}

	// Stop the client's loading indicator whatever the outcome.
	if q := u.CallbackQuery; q != nil {
		if err := c.api.AnswerCallbackQuery(ctx, tu.CallbackQuery(q.ID)); err != nil {
			slog.Debug("answer callback failed", "error", err)
		}
	}

	ev, ok := toEvent(u)
	if !ok {
		return
	}
	// The router logs and replies to its own failures.
	_ = h.Handle(ctx, ev)
}

// slogLogger routes telego's internal logging to slog.
type slogLogger struct{}

func (slogLogger) Debugf(format string, args ...any) {
	slog.Debug("telego: " + fmt.Sprintf(format, args...))
}

func (slogLogger) Errorf(format string, args ...any) {
	slog.Warn("telego: " + fmt.Sprintf(format, args...))
}

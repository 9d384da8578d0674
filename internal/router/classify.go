package router

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/codebot/internal/codes"
	"github.com/nextlevelbuilder/codebot/internal/session"
)

// Route is the handler an event is dispatched to.
type Route int

const (
	RouteIgnore Route = iota
	RouteChannelPost
	RouteCommand
	RouteButton
	RoutePrivateForward
	RoutePendingSearch
	RoutePendingDelete
	RoutePermalink
	RoutePlainCode
	RouteFreeText
)

var routeNames = map[Route]string{
	RouteIgnore:         "ignore",
	RouteChannelPost:    "channel_post",
	RouteCommand:        "command",
	RouteButton:         "button",
	RoutePrivateForward: "private_forward",
	RoutePendingSearch:  "pending_search",
	RoutePendingDelete:  "pending_delete",
	RoutePermalink:      "permalink",
	RoutePlainCode:      "plain_code",
	RouteFreeText:       "free_text",
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return "route(" + strconv.Itoa(int(r)) + ")"
}

// classify picks the route for ev. It has no side effects.
//
// For private text the order is: commands, then the caller's pending prompt,
// then channel permalinks, then code lookup. Anything left is free text.
func classify(ev Event, pending session.State, isAdmin bool, channelID int64) Route {
	switch ev.Kind {
	case EventChannelPost, EventEditedChannelPost:
		if ev.ChatID != channelID || !ev.HasMedia || ev.Text == "" {
			return RouteIgnore
		}
		return RouteChannelPost

	case EventButtonPress:
		if !isAdmin || ev.Button == nil {
			return RouteIgnore
		}
		return RouteButton

	case EventPrivateForward:
		if !isAdmin || ev.Forward == nil || ev.Forward.ChatID == 0 {
			return RouteIgnore
		}
		return RoutePrivateForward

	case EventPrivateText:
		if isCommand(ev.Text) {
			return RouteCommand
		}
		switch pending {
		case session.AwaitingSearchPattern:
			return RoutePendingSearch
		case session.AwaitingDeleteCode:
			return RoutePendingDelete
		}
		if _, ok := ParsePermalink(ev.Text); ok {
			if !isAdmin {
				return RouteIgnore
			}
			return RoutePermalink
		}
		if codes.IsCode(codes.NormalizeQuery(ev.Text)) {
			return RoutePlainCode
		}
		return RouteFreeText
	}
	return RouteIgnore
}

func isCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// commandName returns the lowercased command of text, without any @botname
// suffix: "/Start@my_bot x" → "/start".
func commandName(text string) string {
	cmd := strings.SplitN(text, " ", 2)[0]
	cmd = strings.SplitN(cmd, "@", 2)[0]
	return strings.ToLower(cmd)
}

// channelIDOffset converts a private channel suffix, as it appears in
// t.me/c/ links, into the Bot API chat id.
const channelIDOffset = -1_000_000_000_000

// maxChannelSuffix keeps channelIDOffset - suffix inside int64.
const maxChannelSuffix = math.MaxInt64 + channelIDOffset

var permalinkRe = regexp.MustCompile(`t\.me/c/(\d+)/(\d+)`)

// Permalink is a parsed t.me/c/<suffix>/<message> link.
type Permalink struct {
	ChannelID int64
	MessageID int
}

// ParsePermalink finds the first channel permalink in text.
func ParsePermalink(text string) (Permalink, bool) {
	m := permalinkRe.FindStringSubmatch(text)
	if m == nil {
		return Permalink{}, false
	}
	suffix, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || suffix > maxChannelSuffix {
		return Permalink{}, false
	}
	msgID, err := strconv.Atoi(m[2])
	if err != nil {
		return Permalink{}, false
	}
	return Permalink{ChannelID: channelIDOffset - suffix, MessageID: msgID}, true
}

// PermalinkURL builds the t.me/c/ link for a message in channelID.
func PermalinkURL(channelID int64, messageID int) string {
	return "https://t.me/c/" + strconv.FormatInt(channelIDOffset-channelID, 10) + "/" + strconv.Itoa(messageID)
}

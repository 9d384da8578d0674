package router

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

const (
	// captionMaxLen is Telegram's limit for media captions, in UTF-16 code units.
	captionMaxLen = 1024

	// snippetWidth is the display width of caption snippets in search results.
	snippetWidth = 32
)

// Callback data for admin menu buttons.
const (
	btnStats  = "admin_stats"
	btnList   = "admin_list"
	btnSearch = "admin_search"
	btnDelete = "admin_delete"
)

func adminMenuText() string {
	return "<b>Movie Bot - Admin Panel</b>\n\n" +
		"You can:\n" +
		"• Send a movie code to search (e.g., MOV123)\n" +
		"• Forward a message from the channel to index it\n" +
		"• Send a channel message link to index it\n" +
		"• Use the buttons below to manage the database"
}

func adminMenuKeyboard() *SendOptions {
	return &SendOptions{Keyboard: [][]Button{
		{{Text: "Stats", Data: btnStats}},
		{{Text: "List All", Data: btnList}},
		{{Text: "Search", Data: btnSearch}},
		{{Text: "Delete", Data: btnDelete}},
	}}
}

const greetingText = "Welcome! Send me a movie code (e.g., MOV123) to search."

const helpText = "Send a movie code such as <code>MOV123</code> and I will send you the video.\n\n" +
	"/start — Show the main menu\n" +
	"/cancel — Cancel a pending admin prompt\n" +
	"/help — Show this help message"

const searchPromptText = "Send me a search pattern.\n\n" +
	"Example: <code>MOV</code> to find all codes containing MOV\n\n" +
	"Use /start to cancel"

const deletePromptText = "Send me the code to delete.\n\n" +
	"Example: <code>MOV123</code>\n\n" +
	"Use /start to cancel"

func statsText(total int) string {
	return fmt.Sprintf("<b>Database Statistics</b>\n\nTotal indexed videos: %d\n\nUse /start to return to menu", total)
}

func searchingText(code string) string {
	return fmt.Sprintf("Searching for <code>%s</code>...", html.EscapeString(code))
}

// foundCaption builds the caption for a delivered copy, kept within
// Telegram's caption limit. The limit applies to the rendered text, so the
// original caption is cut before escaping.
func foundCaption(code, caption string) string {
	head := "Found: " + code
	if caption == "" {
		return "Found: <code>" + html.EscapeString(code) + "</code>"
	}
	room := captionMaxLen - utf16Len(head) - 2
	if utf16Len(caption) > room {
		caption = truncateUTF16(caption, room-1) + "…"
	}
	return "Found: <code>" + html.EscapeString(code) + "</code>\n\n" + html.EscapeString(caption)
}

// utf16Len returns the length of s as Telegram counts it. Characters
// outside the BMP, such as most emoji, count twice.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// truncateUTF16 cuts s to at most n UTF-16 code units without splitting a
// character.
func truncateUTF16(s string, n int) string {
	used := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if used+l > n {
			return s[:i]
		}
		used += l
	}
	return s
}

// renderList renders one page of the recent-codes listing.
func renderList(entries []store.MediaEntry, offset, total int) string {
	if len(entries) == 0 {
		if offset > 0 {
			return "No more codes.\n\nUse /start to return"
		}
		return "No codes in database yet.\n\nUse /start to return"
	}

	var b strings.Builder
	b.WriteString("<b>Recent Codes:</b>\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<code>%s</code> (msg: %d)\n", html.EscapeString(e.Code), e.SourceMessageID)
	}
	fmt.Fprintf(&b, "\n<i>Showing %d–%d of %d</i>\nUse /start to return", offset+1, offset+len(entries), total)
	return b.String()
}

// listKeyboard returns Prev/Next buttons for the listing, or nil when a
// single page covers everything.
func listKeyboard(offset, pageSize, total int) *SendOptions {
	var row []Button
	if offset > 0 {
		prev := max(offset-pageSize, 0)
		row = append(row, Button{Text: "« Prev", Data: btnList + ":" + strconv.Itoa(prev)})
	}
	if offset+pageSize < total {
		row = append(row, Button{Text: "Next »", Data: btnList + ":" + strconv.Itoa(offset+pageSize)})
	}
	if len(row) == 0 {
		return nil
	}
	return &SendOptions{Keyboard: [][]Button{row}}
}

// parseListOffset reads the page offset from admin_list[:offset] data.
func parseListOffset(data string) int {
	_, raw, ok := strings.Cut(data, ":")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// renderSearch renders search results with a permalink per entry.
func renderSearch(entries []store.MediaEntry, channelID int64) string {
	if len(entries) == 0 {
		return "No matches found."
	}

	var b strings.Builder
	b.WriteString("<b>Search Results:</b>\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<code>%s</code> - <a href=\"%s\">Link</a>",
			html.EscapeString(e.Code), PermalinkURL(channelID, e.SourceMessageID))
		if s := snippet(e.Caption); s != "" {
			b.WriteString(" · " + html.EscapeString(s))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n<i>Found %d results</i>", len(entries))
	return b.String()
}

// snippet returns the first caption line cut to snippetWidth display cells.
func snippet(caption string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(caption), "\n")
	return runewidth.Truncate(line, snippetWidth, "…")
}

package router

import (
	"context"
	"errors"
	"sync"
)

type sentText struct {
	ChatID int64
	Text   string
	Opts   *SendOptions
}

type editedText struct {
	Ref  MessageRef
	Text string
	Opts *SendOptions
}

type copyCall struct {
	ToChatID   int64
	FromChatID int64
	MessageID  int
	Caption    string
}

type forwardCall struct {
	ToChatID   int64
	FromChatID int64
	MessageID  int
}

// fakeTransport records every outbound action.
type fakeTransport struct {
	mu sync.Mutex

	sent      []sentText
	edited    []editedText
	deleted   []MessageRef
	copied    []copyCall
	forwarded []forwardCall

	nextID int

	// forwardText is the caption returned for ForwardMessage.
	forwardText string
	copyErr     error
	forwardErr  error
	editErr     error
}

func (f *fakeTransport) newRef(chatID int64) MessageRef {
	f.nextID++
	return MessageRef{ChatID: chatID, MessageID: 1000 + f.nextID}
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, opts *SendOptions) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentText{ChatID: chatID, Text: text, Opts: opts})
	return f.newRef(chatID), nil
}

func (f *fakeTransport) EditText(_ context.Context, ref MessageRef, text string, opts *SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, editedText{Ref: ref, Text: text, Opts: opts})
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeTransport) CopyMessage(_ context.Context, toChatID, fromChatID int64, messageID int, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copied = append(f.copied, copyCall{toChatID, fromChatID, messageID, caption})
	return nil
}

func (f *fakeTransport) ForwardMessage(_ context.Context, toChatID, fromChatID int64, messageID int) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded = append(f.forwarded, forwardCall{toChatID, fromChatID, messageID})
	if f.forwardErr != nil {
		return nil, f.forwardErr
	}
	return &Message{Ref: f.newRef(toChatID), Text: f.forwardText}, nil
}

func (f *fakeTransport) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

var errBoom = errors.New("boom")

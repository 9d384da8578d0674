// Package session tracks which follow-up input an administrator owes the bot
// after pressing a menu button.
package session

import (
	"context"
	"fmt"
)

// State is the pending follow-up for one user.
type State int

const (
	Idle State = iota
	AwaitingSearchPattern
	AwaitingDeleteCode
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSearchPattern:
		return "awaiting_search"
	case AwaitingDeleteCode:
		return "awaiting_delete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store holds one State per user identity.
//
// Take must read and clear the state as one atomic step, so two messages
// arriving back to back cannot both consume the same pending prompt.
type Store interface {
	Set(ctx context.Context, userID int64, st State) error
	Take(ctx context.Context, userID int64) (State, error)
	Clear(ctx context.Context, userID int64) error
}

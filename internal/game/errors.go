package game

import (
	"errors"
	"sort"

	"github.com/calvinwijaya/card-games-api/internal/types"
)

var (
	ErrInvalidOptions    = errors.New("invalid deck options")
	ErrDuplicatePileName = errors.New("duplicate pile name")
	ErrReservedPileName  = errors.New("reserved pile name")
	ErrUnknownPile       = errors.New("unknown pile")
	ErrNotDrawable       = errors.New("pile is not drawable")
	ErrAlreadyPlaying    = errors.New("game already in progress")
	ErrNotPlaying        = errors.New("game not started")
	ErrNotYourTurn       = errors.New("not this player's turn")
	ErrOutOfRange        = errors.New("value out of range")
)

func invalid(message string, err error) *types.GameError {
	return types.WrapError(types.ErrInvalidInput, message, err)
}

func conflict(message string, err error) *types.GameError {
	return types.WrapError(types.ErrConflict, message, err)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

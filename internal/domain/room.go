package domain

import "errors"

var ErrRoomNotFound = errors.New("room not found")

// RoomID is the stable key of a debate session. It scopes all
// membership, presence and broadcast operations. Session existence is
// the storage adapter's concern; the core only checks it on join.
type RoomID int64

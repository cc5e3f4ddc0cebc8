package story

import "errors"

// ErrStorageUnavailable is returned by MemoryStorage when writes are disabled.
var ErrStorageUnavailable = errors.New("story: storage unavailable")

// DialogueNotFound is the single line returned for unknown NPCs or contexts.
const DialogueNotFound = "[ERROR: Dialogue not found]"

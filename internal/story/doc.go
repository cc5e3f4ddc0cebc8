// Package story owns the narrative state of a play session.
//
// The Engine is the single source of truth for the character, the mission
// position, story flags and unlocked commands. Every mutator writes the full
// progress snapshot to a Storage slot before returning. Storage failures are
// logged and swallowed: the in-memory state stays authoritative for the rest
// of the session.
//
// # Invariants
//
//   - Unlocked commands, story flags, experience and the completed mission
//     list never shrink (short of Reset).
//   - CharacterLevel == ExperiencePoints/500 + 1 after every mutation.
//   - CurrentMission is always a key of the mission table.
//   - CompletedMissions holds only known missions, each at most once.
package story

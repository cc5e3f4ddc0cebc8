// Package harness runs scripted play sessions and checks their outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: tutorial_walkthrough
//	description: "What this scenario validates"
//	character: neo
//	skip_intro: true
//	setup:
//	  flags: [met_oracle]
//	  unlock: [ls]
//	  missions: [prologue]
//	input:
//	  - ls
//	  - cat briefing.txt
//	assertions:
//	  - type: flag_set
//	    flag: read_briefing
//	  - type: current_mission
//	    mission: data_recovery
//	  - type: output_order
//	    texts: ["MISSION COMPLETE", "BRIEFING"]
//
// Without skip_intro the startup sequence plays first and character is
// typed as the answer to its name prompt. With skip_intro the name is set
// directly.
//
// # Assertion Types
//
//   - flag_set, flag_unset: a story flag is (not) raised
//   - command_unlocked, command_locked: a command is (not) available
//   - current_mission, mission_completed: mission position and history
//   - experience, level: exact values
//   - output_contains, output_not_contains: substring of any output line
//   - output_order: substrings appear in this order across output lines
//   - event_count: number of recorded session events of a kind
//
// # Deterministic Testing
//
// Every scenario runs against fresh in-memory storage with a frozen wall
// clock (testutil.FixedClock), a fixed random sequence and a logical event
// clock, so two runs of the same scenario produce identical results and
// golden snapshots.
package harness

package story

import (
	sd "github.com/roach88/cyberterm/internal/storydata"
)

// predicate decides whether one objective is satisfied by the current state.
type predicate func(e *Engine) bool

func flagSet(flag string) predicate {
	return func(e *Engine) bool { return e.storyFlags.Has(flag) }
}

// objectivePredicates maps mission objectives to their completion checks.
// Missions absent from this table never complete through
// CheckObjectiveCompletion and must be completed explicitly.
var objectivePredicates = map[sd.MissionID]map[sd.ObjectiveID]predicate{
	sd.Prologue: {
		sd.ObjMeetOracle:        flagSet("met_oracle"),
		sd.ObjLearnHelp:         flagSet("learned_help"),
		sd.ObjEstablishIdentity: func(e *Engine) bool { return e.characterName != "" },
	},
	sd.Tutorial: {
		sd.ObjListFiles:     flagSet("used_ls"),
		sd.ObjPrintLocation: flagSet("used_pwd"),
		sd.ObjReadBriefing:  flagSet("read_briefing"),
	},
	sd.DataRecovery: {
		sd.ObjEnterArchives:   flagSet("visited_archives"),
		sd.ObjScanNetwork:     flagSet("used_scan"),
		sd.ObjRecoverFragment: flagSet("found_fragment"),
	},
}

// HasObjectiveChecks reports whether mission can auto-complete.
func HasObjectiveChecks(mission sd.MissionID) bool {
	return len(objectivePredicates[mission]) > 0
}

// ObjectiveCompleted evaluates one objective. Objectives without a check are
// never complete.
func (e *Engine) ObjectiveCompleted(mission sd.MissionID, objective sd.ObjectiveID) bool {
	check, ok := objectivePredicates[mission][objective]
	if !ok {
		return false
	}
	return check(e)
}

// CompletedObjectiveCount counts satisfied objectives of the current mission.
func (e *Engine) CompletedObjectiveCount() int {
	m, ok := e.CurrentMission()
	if !ok {
		return 0
	}
	n := 0
	for _, o := range m.Objectives {
		if e.ObjectiveCompleted(m.ID, o.ID) {
			n++
		}
	}
	return n
}

// CheckObjectiveCompletion re-evaluates the current mission after a tracked
// action and completes it once every check passes. It returns the
// CompleteMission result; the mission position is not advanced here.
func (e *Engine) CheckObjectiveCompletion(action string, details map[string]any) bool {
	checks := objectivePredicates[e.currentMission]
	if len(checks) == 0 {
		return false
	}
	for id, check := range checks {
		if !check(e) {
			e.logger.Debug("objective pending",
				"mission", e.currentMission,
				"objective", id,
				"action", action)
			return false
		}
	}
	e.logger.Debug("all objectives met", "mission", e.currentMission, "action", action, "details", details)
	return e.CompleteMission(e.currentMission)
}

package runtime

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// transitions lists the stages reachable from each stage.
// Every non-terminal stage may also move to StageFailed.
var transitions = map[domain.Stage][]domain.Stage{
	domain.StageReceived:   {domain.StageNormalized},
	domain.StageNormalized: {domain.StageGenerated},
	domain.StageGenerated:  {domain.StagePackaged},
	domain.StagePackaged:   {domain.StageTested, domain.StageDone},
	domain.StageTested:     {domain.StageDone},
}

// Terminal reports whether no transition leaves s.
func Terminal(s domain.Stage) bool {
	return s == domain.StageDone || s == domain.StageFailed
}

// CanTransition reports whether the pipeline may move from one stage to another.
func CanTransition(from, to domain.Stage) bool {
	if Terminal(from) {
		return false
	}
	if to == domain.StageFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to domain.Stage) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal stage transition %s -> %s", from, to)
	}
	return nil
}

package evidence

import "testing"

func TestCanTransitionHappyPath(t *testing.T) {
	path := []string{
		StatusQueued, StatusRunning, StatusEvidenceReady,
		StatusDecided, StatusExecuted, StatusMeasured,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("%s -> %s should be legal", path[i], path[i+1])
		}
	}
}

func TestFailedReachableFromEveryNonTerminal(t *testing.T) {
	for _, from := range []string{
		StatusQueued, StatusRunning, StatusEvidenceReady, StatusDecided, StatusExecuted,
	} {
		if !CanTransition(from, StatusFailed) {
			t.Fatalf("%s -> FAILED should be legal", from)
		}
	}
}

func TestTerminalStatesAdmitNothing(t *testing.T) {
	all := []string{
		StatusQueued, StatusRunning, StatusEvidenceReady,
		StatusDecided, StatusExecuted, StatusMeasured, StatusFailed,
	}
	for _, terminal := range []string{StatusMeasured, StatusFailed} {
		if !IsTerminalStatus(terminal) {
			t.Fatalf("%s should be terminal", terminal)
		}
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Fatalf("%s -> %s should be illegal", terminal, to)
			}
		}
	}
}

func TestNoSkippingStages(t *testing.T) {
	illegal := [][2]string{
		{StatusQueued, StatusEvidenceReady},
		{StatusQueued, StatusDecided},
		{StatusRunning, StatusDecided},
		{StatusEvidenceReady, StatusExecuted},
		{StatusDecided, StatusMeasured},
		{StatusRunning, StatusQueued},
		{StatusDecided, StatusEvidenceReady},
	}
	for _, pair := range illegal {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("%s -> %s should be illegal", pair[0], pair[1])
		}
	}
}

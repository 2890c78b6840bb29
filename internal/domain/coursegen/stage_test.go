package coursegen

import "testing"

func TestStageNextWalksFixedOrder(t *testing.T) {
	s := StageBlueprint
	var walk []Stage
	for {
		walk = append(walk, s)
		next, ok := s.Next()
		if !ok {
			break
		}
		if next.Index() <= s.Index() {
			t.Fatalf("Next(%s): want index > %d got %d", s, s.Index(), next.Index())
		}
		s = next
	}
	if len(walk) != len(StageOrder) || walk[len(walk)-1] != StageCompleted {
		t.Fatalf("walk: want=%v got=%v", StageOrder, walk)
	}
}

func TestFailedHasNoSuccessor(t *testing.T) {
	if _, ok := StageFailed.Next(); ok {
		t.Fatalf("FAILED.Next: want no successor")
	}
	if !StageFailed.Terminal() || !StageCompleted.Terminal() || StageMedia.Terminal() {
		t.Fatalf("Terminal: unexpected classification")
	}
	if !StageFailed.Valid() || Stage("VOCABULARY_LINKING").Valid() {
		t.Fatalf("Valid: unexpected classification")
	}
}

func TestEpisodeRef(t *testing.T) {
	ep := &EpisodePlan{ModuleNumber: 2, EpisodeNumber: 3}
	if got := ep.Ref(); got != "M2E3" {
		t.Fatalf("Ref: want=M2E3 got=%s", got)
	}
}

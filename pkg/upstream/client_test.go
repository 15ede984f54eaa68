package upstream

import "testing"

func TestSelectCommentsLimitsToLastNPublic(t *testing.T) {
	all := []Comment{
		{ID: "1", Public: true},
		{ID: "2", Public: true},
		{ID: "3", Public: true},
	}
	got := selectComments(all, false, 2)
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("unexpected selection: %+v", got)
	}
}

func TestSelectCommentsExcludesInternalByDefault(t *testing.T) {
	all := []Comment{
		{ID: "1", Public: true},
		{ID: "2", Public: false},
	}
	got := selectComments(all, false, 1)
	for _, c := range got {
		if !c.Public {
			t.Errorf("did not expect internal comment %q without opt-in", c.ID)
		}
	}
}

func TestSelectCommentsIncludesInternalWhenOptedIn(t *testing.T) {
	all := []Comment{
		{ID: "1", Public: true},
		{ID: "2", Public: false},
	}
	got := selectComments(all, true, 1)
	var sawInternal bool
	for _, c := range got {
		if !c.Public {
			sawInternal = true
		}
	}
	if !sawInternal {
		t.Error("expected internal comment to be included when opted in")
	}
}

func TestSelectCommentsZeroLastNPublicKeepsAllPublic(t *testing.T) {
	all := []Comment{{ID: "1", Public: true}}
	got := selectComments(all, false, 0)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("expected every public comment when lastNPublic=0, got %+v", got)
	}
}

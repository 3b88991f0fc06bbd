package permission

import "testing"

func TestLevelCovers(t *testing.T) {
	cases := []struct {
		level    Level
		required Level
		want     bool
	}{
		{LevelControl, LevelControl, true},
		{LevelControl, LevelView, true},
		{LevelWrite, LevelControl, false},
		{LevelWrite, LevelRead, true},
		{LevelRead, LevelView, true},
		{LevelRead, LevelWrite, false},
		{LevelView, LevelView, true},
		{LevelView, LevelControl, false},
	}
	for _, tc := range cases {
		if got := tc.level.Covers(tc.required); got != tc.want {
			t.Errorf("%s covers %s = %v, want %v", tc.level, tc.required, got, tc.want)
		}
	}
}

func TestLevelCoversUnknown(t *testing.T) {
	if Level("owner").Covers(LevelView) {
		t.Error("unknown level must cover nothing")
	}
	if LevelControl.Covers(Level("everything")) {
		t.Error("unknown requirement must never be covered")
	}
}

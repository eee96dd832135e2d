package models

import "testing"

func TestMatchResultString(t *testing.T) {
	matched := MatchResult{Status: StatusMatched, MatchedID: 11, ConfidenceNote: "exact shopee id"}
	if got := matched.String(); got != "MATCHED id=11 (exact shopee id)" {
		t.Fatalf("String = %q", got)
	}

	unmatched := MatchResult{Status: StatusUnmatched, NearestMatchName: "Xiaomi Pad 6"}
	if got := unmatched.String(); got != `UNMATCHED nearest="Xiaomi Pad 6"` {
		t.Fatalf("String = %q", got)
	}
}

func TestTargetCatalogID(t *testing.T) {
	cases := []struct {
		name   string
		row    ImportRow
		wantID int
		wantOK bool
	}{
		{"approve", ImportRow{Action: ActionApprove, MatchedCatalogID: 11}, 11, true},
		{"approve without match", ImportRow{Action: ActionApprove}, 0, false},
		{"link", ImportRow{Action: ActionLink, LinkedCatalogID: 42}, 42, true},
		{"link without id", ImportRow{Action: ActionLink}, 0, false},
		{"ignore", ImportRow{Action: ActionIgnore, MatchedCatalogID: 11}, 0, false},
		{"no action", ImportRow{MatchedCatalogID: 11}, 0, false},
	}
	for _, c := range cases {
		id, ok := c.row.TargetCatalogID()
		if id != c.wantID || ok != c.wantOK {
			t.Fatalf("%s: got (%d, %v), want (%d, %v)", c.name, id, ok, c.wantID, c.wantOK)
		}
	}
}

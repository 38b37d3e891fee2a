package bayes

import (
	"slices"
	"testing"
)

func TestSplitKey(t *testing.T) {
	testCases := []struct {
		key     string
		parents string
		child   string
	}{
		{key: "T,T,F", parents: "T,T", child: "F"},
		{key: "blue,green,yellow,red,blue", parents: "blue,green,yellow,red", child: "blue"},
		{key: "single", parents: "", child: "single"},
		{key: "T,", parents: "T", child: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			parents, child := SplitKey(tc.key)
			if parents != tc.parents || child != tc.child {
				t.Errorf("SplitKey(%q) = (%q, %q), want (%q, %q)", tc.key, parents, child, tc.parents, tc.child)
			}
			if tc.child != "" && JoinKey(parents, child) != tc.key {
				t.Errorf("JoinKey(%q, %q) = %q, want %q", parents, child, JoinKey(parents, child), tc.key)
			}
		})
	}
}

func TestConditionalProbabilityValidate(t *testing.T) {
	if !(ConditionalProbability{Child: "T", Probability: 0.5}).Validate() {
		t.Error("expected a defined probability to be valid")
	}
	if (ConditionalProbability{Child: "T", Probability: 0}).Validate() {
		t.Error("expected a zero probability to be invalid")
	}
}

func TestConditionalProbabilityOrder(t *testing.T) {
	rows := []ConditionalProbability{
		{Parents: "T", Child: "T"},
		{Parents: "F", Child: "T"},
		{Parents: "T", Child: "F"},
		{Parents: "F", Child: "F"},
	}
	slices.SortFunc(rows, ConditionalProbability.Compare)

	want := []ConditionalProbability{
		{Parents: "F", Child: "F"},
		{Parents: "T", Child: "F"},
		{Parents: "F", Child: "T"},
		{Parents: "T", Child: "T"},
	}
	if !slices.Equal(rows, want) {
		t.Errorf("sorted rows = %v, want %v", rows, want)
	}

	a := ConditionalProbability{Parents: "F", Child: "T", Probability: 0.1}
	b := ConditionalProbability{Parents: "F", Child: "T", Probability: 0.9}
	if !a.Equal(b) {
		t.Error("expected rows for the same cell to be equal regardless of probability")
	}
	if !rows[0].Less(rows[1]) || rows[1].Less(rows[0]) {
		t.Error("Less disagrees with Compare")
	}
}

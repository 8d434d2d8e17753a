package extractor

import (
	"reflect"
	"strings"
	"testing"
)

func TestSegmentSentencesJoinsWrappedProse(t *testing.T) {
	text := "Graph databases store entities as nodes and their connections as typed\nedges between those nodes. Queries traverse the structure directly."
	got := SegmentSentences(text)
	want := []string{
		"Graph databases store entities as nodes and their connections as typed edges between those nodes.",
		"Queries traverse the structure directly.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sentences: want=%v got=%v", want, got)
	}
}

func TestSegmentSentencesShortWrappedLineStaysJoined(t *testing.T) {
	// A short physical line inside wrapped prose is a wrap artifact, not a
	// heading; the block must not split around it.
	text := "The ingestion pipeline extracts entities from every uploaded document\nand stores them\nas graph nodes linked back to the originating source records."
	got := SegmentSentences(text)
	want := []string{
		"The ingestion pipeline extracts entities from every uploaded document and stores them as graph nodes linked back to the originating source records.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sentences: want=%v got=%v", want, got)
	}
}

func TestSegmentSentencesShortLineStandsAlone(t *testing.T) {
	text := "데이터베이스 개요\n그래프 데이터베이스는 노드와 엣지로 데이터를 표현하는 저장소이다."
	got := SegmentSentences(text)
	if len(got) != 2 {
		t.Fatalf("sentence count: want=2 got=%d (%v)", len(got), got)
	}
	if got[0] != "데이터베이스 개요" {
		t.Fatalf("heading must stand alone, got=%q", got[0])
	}
}

func TestSegmentSentencesStripsEnumMarkers(t *testing.T) {
	text := "1. First item describes the graph layer in detail today.\n(2) Second item describes the vector layer in detail today.\n가) 세번째 항목은 그래프 저장소와 벡터 저장소의 관계를 설명한다."
	got := SegmentSentences(text)
	if len(got) != 3 {
		t.Fatalf("sentence count: want=3 got=%d (%v)", len(got), got)
	}
	for _, s := range got {
		if strings.HasPrefix(s, "1.") || strings.HasPrefix(s, "(2)") || strings.HasPrefix(s, "가)") {
			t.Fatalf("enumeration marker not stripped: %q", s)
		}
	}
}

func TestSegmentSentencesDropsJunk(t *testing.T) {
	text := "A.\n--\n!?\nGraph stores keep relationships explicit inside the data model."
	got := SegmentSentences(text)
	if len(got) != 1 {
		t.Fatalf("junk fragments must be dropped, got=%v", got)
	}
}

func TestSplitTerminatorsKeepsDecimals(t *testing.T) {
	got := splitTerminators("The score was 3.14 on the benchmark. A second run scored 2.71 overall.")
	if len(got) != 2 {
		t.Fatalf("fragment count: want=2 got=%d (%v)", len(got), got)
	}
	if !strings.Contains(got[0], "3.14") {
		t.Fatalf("decimal split inside a number: %q", got[0])
	}
}

func TestIsJunkFragment(t *testing.T) {
	cases := []struct {
		frag string
		want bool
	}{
		{"a", true},
		{"a!", true},
		{"--", true},
		{"ab", false},
		{"그래프", false},
	}
	for _, tc := range cases {
		if got := isJunkFragment(tc.frag); got != tc.want {
			t.Fatalf("isJunkFragment(%q): want=%v got=%v", tc.frag, tc.want, got)
		}
	}
}

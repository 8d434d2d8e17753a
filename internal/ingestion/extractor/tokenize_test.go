package extractor

import (
	"reflect"
	"testing"
)

func TestTokenizeKoreanStripsParticlesAndGroupsPhrases(t *testing.T) {
	got := Tokenize("그래프는 데이터베이스의 핵심이다.")
	if len(got) == 0 {
		t.Fatalf("no tokens extracted")
	}
	for _, tok := range got {
		if tok == "그래프는" || tok == "데이터베이스의" {
			t.Fatalf("particle not stripped: %q", tok)
		}
	}
}

func TestTokenizeKoreanPhraseGrouping(t *testing.T) {
	got := Tokenize("지식 그래프 구축")
	want := []string{"지식 그래프 구축"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("phrase grouping: want=%v got=%v", want, got)
	}
}

func TestTokenizeEnglishStopwordBoundedChunks(t *testing.T) {
	got := Tokenize("The graph store and the vector index share a brain.")
	want := []string{"graph store", "vector index share", "brain"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks: want=%v got=%v", want, got)
	}
}

func TestTokenizeOtherIsWholeSentence(t *testing.T) {
	got := Tokenize("  12345 67890  ")
	want := []string{"12345 67890"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("other-language token: want=%v got=%v", want, got)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize("   "); got != nil {
		t.Fatalf("blank sentence must yield no tokens, got=%v", got)
	}
}

func TestStripParticleKeepsShortStems(t *testing.T) {
	// Stripping would leave a single rune, so the word stays intact.
	if got := stripParticle("나는"); got != "나는" {
		t.Fatalf("short stem must survive, got=%q", got)
	}
	if got := stripParticle("그래프는"); got != "그래프" {
		t.Fatalf("particle strip: want=그래프 got=%q", got)
	}
}

package textutil

import "testing"

func TestFold_StripsAccentsAndCase(t *testing.T) {
	cases := map[string]string{
		"Présentation": "presentation",
		"Réseau TCP":   "reseau tcp",
		"plain ascii":  "plain ascii",
		"Über-Größe":   "uber-große", // ß is not a combining mark, stays
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeywords_MinLengthAndFolding(t *testing.T) {
	kw := Keywords("La couche Réseau du modèle OSI, en 7 couches !", 3)

	for _, want := range []string{"couche", "reseau", "modele", "osi", "couches"} {
		if _, ok := kw[want]; !ok {
			t.Errorf("expected keyword %q in %v", want, kw)
		}
	}
	// "la", "du", "en", "7" are under the length floor
	for _, absent := range []string{"la", "du", "en", "7"} {
		if _, ok := kw[absent]; ok {
			t.Errorf("keyword %q should have been filtered", absent)
		}
	}
}

func TestIntegers(t *testing.T) {
	got := Integers("HTTP uses port 80, HTTPS uses 443. Founded in 1991.")
	for _, want := range []string{"80", "443", "1991"} {
		if _, ok := got[want]; !ok {
			t.Errorf("expected integer %q in %v", want, got)
		}
	}
	if len(got) != 3 {
		t.Errorf("expected 3 integers, got %v", got)
	}
}

func TestOverlapAndSubset(t *testing.T) {
	a := Keywords("the capital of France", 3)
	b := Keywords("Paris is the capital of France", 3)

	if Overlap(a, b) < 2 {
		t.Errorf("expected overlap >= 2, got %d", Overlap(a, b))
	}
	if !Subset(a, b) {
		t.Error("question keywords should be a subset of the longer context")
	}
	if Subset(b, a) {
		t.Error("context keywords are not a subset of the question")
	}
}

func TestFuzzyOverlap_PrefixAndContainment(t *testing.T) {
	q := Keywords("routage réseaux", 3)
	c := Keywords("le routeur transmet sur le réseau", 3)

	// "routage"/"routeur" share the 4-char prefix "rout";
	// "reseau" is contained in "reseaux".
	if !FuzzyOverlap(q, c, 4, 4) {
		t.Error("expected fuzzy overlap between morphological variants")
	}

	q2 := Keywords("astronomie", 3)
	c2 := Keywords("cuisine italienne", 3)
	if FuzzyOverlap(q2, c2, 4, 4) {
		t.Error("unrelated keyword sets must not fuzzy-match")
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("osi model", "osi model"); got != 1 {
		t.Errorf("identical strings: got %v, want 1", got)
	}
	if got := Similarity("", "osi"); got != 0 {
		t.Errorf("empty string: got %v, want 0", got)
	}
	got := Similarity("introduction to networks", "introduction to network")
	if got < 0.9 {
		t.Errorf("near-identical titles: got %v, want >= 0.9", got)
	}
	far := Similarity("cooking recipes", "quantum physics")
	if far > 0.5 {
		t.Errorf("unrelated titles: got %v, want <= 0.5", far)
	}
}

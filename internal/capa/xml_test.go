package capa

import "testing"

func TestParseXMLTree(t *testing.T) {
	root, err := ParseXML([]byte(`<problem display_name="Demo">
	  <p>intro</p>
	  <numericalresponse answer="1">
	    <responseparam type="tolerance" default="5%"/>
	    <textline size="20"/>
	  </numericalresponse>
	</problem>`))
	if err != nil {
		t.Fatalf("ParseXML: %v", err)
	}
	if root.Tag != "problem" || root.Attr("display_name", "") != "Demo" {
		t.Fatalf("root = %s %v", root.Tag, root.Attrs)
	}

	nr := root.Find("numericalresponse")
	if nr == nil || nr.Attr("answer", "") != "1" {
		t.Fatal("numericalresponse not found")
	}
	if tl := nr.Find("textline"); tl == nil || tl.Attr("size", "") != "20" {
		t.Error("nested textline lookup failed")
	}
	if got := root.Find("p").TrimmedText(); got != "intro" {
		t.Errorf("text = %q", got)
	}
	if root.Find("nonexistent") != nil {
		t.Error("missing tag should return nil")
	}
}

func TestFindAllDocumentOrder(t *testing.T) {
	root, err := ParseXML([]byte(`<problem>
	  <optionresponse>
	    <optioninput options="(a,b)" correct="a"/>
	    <optioninput options="(a,b)" correct="b"/>
	  </optionresponse>
	  <optionresponse>
	    <optioninput options="(c,d)" correct="c"/>
	  </optionresponse>
	</problem>`))
	if err != nil {
		t.Fatalf("ParseXML: %v", err)
	}
	all := root.FindAll("optioninput")
	if len(all) != 3 {
		t.Fatalf("found %d optioninputs, want 3", len(all))
	}
	want := []string{"a", "b", "c"}
	for i, n := range all {
		if n.Attr("correct", "") != want[i] {
			t.Errorf("input %d correct = %q, want %q", i, n.Attr("correct", ""), want[i])
		}
	}
}

func TestParseXMLRejectsMalformed(t *testing.T) {
	if _, err := ParseXML([]byte(`<problem><unclosed></problem>`)); err == nil {
		t.Error("mismatched tags should fail")
	}
}

package diag

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(CodeTruncatedStream, CategoryContainer, "stream %q extends past end of file", "#Blob")

	if err.Code != CodeTruncatedStream {
		t.Errorf("Code = %s, want %s", err.Code, CodeTruncatedStream)
	}
	if err.Category != CategoryContainer {
		t.Errorf("Category = %s, want %s", err.Category, CategoryContainer)
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %s, want %s", err.Severity, SeverityError)
	}
	if err.Offset != -1 {
		t.Errorf("Offset = %d, want -1", err.Offset)
	}
	if !strings.Contains(err.Message, "#Blob") {
		t.Errorf("Message %q missing stream name", err.Message)
	}
}

func TestErrorBuilders(t *testing.T) {
	err := New(CodeUnresolvedReference, CategoryResolution, "unresolved type reference").
		WithFile("Windows.winmd").
		WithChain("NS.Widget", "NS.IWidget", "NS.Missing")

	if err.File != "Windows.winmd" {
		t.Errorf("File = %q, want Windows.winmd", err.File)
	}
	if len(err.Chain) != 3 {
		t.Fatalf("Chain length = %d, want 3", len(err.Chain))
	}

	formatted := err.Format()
	for _, want := range []string{"Windows.winmd", "NS.Missing", "Reference chain"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestErrorOffsetFormatting(t *testing.T) {
	err := New(CodeMalformedContainer, CategoryContainer, "bad metadata magic").
		WithFile("broken.winmd").
		WithOffset(0x2c8)

	got := FormatCompact(err)
	want := "broken.winmd@0x2c8: error: bad metadata magic [CON001]"
	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestListSeverityCounts(t *testing.T) {
	list := List{
		New(CodeUnmatchedFilterRule, CategoryFilter, "rule matches nothing").AsWarning(),
		New(CodeValueTypeCycle, CategoryResolution, "value cycle"),
		New(CodeUnmatchedFilterRule, CategoryFilter, "another unmatched rule").AsWarning(),
	}

	errs, warns := list.Count()
	if errs != 1 || warns != 2 {
		t.Errorf("Count() = (%d, %d), want (1, 2)", errs, warns)
	}
	if !list.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
	if !list.HasWarnings() {
		t.Error("HasWarnings() = false, want true")
	}
}

func TestListWarningsOnlyIsNotFatal(t *testing.T) {
	list := List{
		New(CodeUnmatchedFilterRule, CategoryFilter, "rule matches nothing").AsWarning(),
	}
	if list.HasErrors() {
		t.Error("HasErrors() = true for warnings-only list")
	}
}

func TestToJSON(t *testing.T) {
	err := New(CodeUnknownElementType, CategorySignature, "unknown element type 0x17").
		WithFile("test.winmd")

	out, jsonErr := err.ToJSON()
	if jsonErr != nil {
		t.Fatalf("ToJSON() error: %v", jsonErr)
	}

	var decoded map[string]interface{}
	if uErr := json.Unmarshal([]byte(out), &decoded); uErr != nil {
		t.Fatalf("output is not valid JSON: %v", uErr)
	}
	if decoded["code"] != "SIG102" {
		t.Errorf("code = %v, want SIG102", decoded["code"])
	}
	if decoded["category"] != "signature" {
		t.Errorf("category = %v, want signature", decoded["category"])
	}
}

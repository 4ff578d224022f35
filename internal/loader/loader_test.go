package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	got, err := ExtractBytes([]byte{'o', 'k', 0xff}, ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok�" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excelRowsBecomeSentences(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Region")
	f.SetCellValue("Sheet1", "B1", "Shipping cost")
	f.SetCellValue("Sheet1", "A2", "EU")
	f.SetCellValue("Sheet1", "B2", "$15")
	f.SetCellValue("Sheet1", "A4", "Rates change yearly!")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatal(err)
	}
	want := "Region; Shipping cost.\nEU; $15.\nRates change yearly!"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestExtractBytes_badPDF(t *testing.T) {
	if _, err := ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Fatal("expected error for invalid PDF")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "b_shipping.md"), []byte("# Shipping\nShipping takes 5 days."), 0o644)
	os.WriteFile(filepath.Join(dir, "a_returns.txt"), []byte("Returns within 30 days."), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`{}`), 0o644)
	os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755)

	docs, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs", len(docs))
	}
	if docs[0].Source != "a_returns.txt" || docs[1].Source != "b_shipping.md" {
		t.Errorf("unexpected order %q, %q", docs[0].Source, docs[1].Source)
	}
	if docs[0].Content != "Returns within 30 days." {
		t.Errorf("content = %q", docs[0].Content)
	}

	only, err := LoadDir(dir, []string{".TXT"})
	if err != nil || len(only) != 1 {
		t.Fatalf("filtered: %v, %v", only, err)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

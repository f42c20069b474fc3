package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shandysiswandi/gobordereau/internal/extraction/consolidate"
)

func sampleSheet() consolidate.Sheet {
	return consolidate.Sheet{
		Name:   "Extraction globale",
		Header: []string{"Document", "Catégorie", "Nom & Prénom", "NNI", "Observations"},
		Rows: [][]string{
			{"csp-mars", "Titularisations", "DUPONT Marie", "0123", "avis, favorable"},
			{"csp-mars", "Requêtes individuelles", "MARTIN Paul", "=1+1", "ligne 1\nligne 2"},
			{"csp-avril", "Titularisations", "", "", "\"cité\""},
		},
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	s := sampleSheet()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s, CSVOptions{BOM: true}); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	out := buf.Bytes()
	if !bytes.HasPrefix(out, utf8BOM) {
		t.Fatal("output has no BOM")
	}

	records, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(records) != len(s.Rows)+1 {
		t.Fatalf("read %d records, want %d", len(records), len(s.Rows)+1)
	}
	if !slices.Equal(records[0], s.Header) {
		t.Fatalf("header = %q", records[0])
	}
	for i, row := range s.Rows {
		if !slices.Equal(records[i+1], row) {
			t.Fatalf("row %d = %q, want %q", i, records[i+1], row)
		}
	}
}

func TestWriteCSVIdempotent(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	if err := WriteCSV(&a, sampleSheet(), CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	if err := WriteCSV(&b, sampleSheet(), CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("same sheet gave different CSV bytes")
	}
	if bytes.HasPrefix(a.Bytes(), utf8BOM) {
		t.Fatal("BOM written while disabled")
	}
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := consolidate.Sheet{Header: []string{"Document", "Catégorie", "Nom & Prénom"}}
	if err := WriteCSV(&buf, s, CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	if got := buf.String(); got != "Document,Catégorie,Nom & Prénom\n" {
		t.Fatalf("WriteCSV() = %q", got)
	}
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	t.Parallel()

	global := sampleSheet()
	second := consolidate.Sheet{Name: "A3 Titularisations", Header: []string{"A"}, Rows: [][]string{{"x"}}}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, global, second); err != nil {
		t.Fatalf("WriteXLSX() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !slices.Equal(got, []string{"Extraction globale", "A3 Titularisations"}) {
		t.Fatalf("GetSheetList() = %q", got)
	}

	rows, err := f.GetRows("Extraction globale")
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if !slices.Equal(rows[0], global.Header) {
		t.Fatalf("header = %q", rows[0])
	}
	if rows[1][3] != "0123" || rows[2][3] != "=1+1" {
		t.Fatalf("text cells were coerced: %q, %q", rows[1][3], rows[2][3])
	}
	if rows[2][4] != "ligne 1\nligne 2" {
		t.Fatalf("multi-line cell = %q", rows[2][4])
	}
	if rows[3][2] != "" || rows[3][4] != "\"cité\"" {
		t.Fatalf("row 3 = %q", rows[3])
	}
}

func TestWriteXLSXSheetNames(t *testing.T) {
	t.Parallel()

	long := consolidate.Sheet{Name: "A50 Nominations suite aux publications de postes"}
	dup := consolidate.Sheet{Name: "a50 nominations suite aux publications de postes"}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, long, dup); err != nil {
		t.Fatalf("WriteXLSX() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) != 2 {
		t.Fatalf("GetSheetList() = %q", names)
	}
	if names[0] != "A50 Nominations suite aux pu..." {
		t.Fatalf("first sheet = %q", names[0])
	}
	for _, n := range names {
		if len([]rune(n)) > 31 {
			t.Fatalf("sheet name %q longer than 31", n)
		}
	}
	if strings.EqualFold(names[0], names[1]) {
		t.Fatalf("duplicate sheet names %q", names)
	}
}

func TestWriteArchive(t *testing.T) {
	t.Parallel()

	mod := time.Date(2024, 3, 12, 10, 15, 0, 0, time.UTC)
	entries := []Entry{
		{Name: "csp.csv", Body: []byte("a,b\n")},
		{Name: "csp.csv", Body: []byte("c,d\n")},
		{Name: "autre.csv", Body: []byte("e,f\n")},
	}

	var a, b bytes.Buffer
	if err := WriteArchive(&a, entries, mod); err != nil {
		t.Fatalf("WriteArchive() error: %v", err)
	}
	if err := WriteArchive(&b, entries, mod); err != nil {
		t.Fatalf("WriteArchive() error: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("same entries gave different zip bytes")
	}

	zr, err := zip.NewReader(bytes.NewReader(a.Bytes()), int64(a.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error: %v", err)
	}

	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
		if zf.Method != zip.Deflate {
			t.Fatalf("%s method = %d, want deflate", zf.Name, zf.Method)
		}
	}
	if !slices.Equal(names, []string{"csp.csv", "csp_2.csv", "autre.csv"}) {
		t.Fatalf("entries = %q", names)
	}

	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "c,d\n" {
		t.Fatalf("csp_2.csv = %q", body)
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "CSP du 12/03 : bordereaux?", want: "CSP_du_12_03___bordereaux"},
		{in: "  .rapport final. ", want: "rapport_final"},
		{in: "***", want: "document"},
		{in: strings.Repeat("é", 60), want: strings.Repeat("é", 50)},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeSheetName(t *testing.T) {
	t.Parallel()

	if got := SanitizeSheetName("A6 [bis]: mutations/collectives"); got != "A6 _bis__ mutations_collectives" {
		t.Fatalf("SanitizeSheetName() = %q", got)
	}
	if got := SanitizeSheetName(""); got != "Extraction" {
		t.Fatalf("SanitizeSheetName(empty) = %q", got)
	}
}

func TestFilenames(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 12, 10, 15, 30, 0, time.UTC)
	if got := GlobalFilename(ts, FormatCSV); got != "extraction_globale_consolidee_20240312_101530.csv" {
		t.Fatalf("GlobalFilename() = %q", got)
	}
	if got := ArchiveFilename(ts, FormatXLSX); got != "extraction_xlsx_individuels_20240312_101530.zip" {
		t.Fatalf("ArchiveFilename() = %q", got)
	}
	if got := DocumentFilename("CSP mars 2024", FormatXLSX); got != "CSP_mars_2024.xlsx" {
		t.Fatalf("DocumentFilename() = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if f, ok := ParseFormat(" XLSX "); !ok || f != FormatXLSX {
		t.Fatalf("ParseFormat(XLSX) = %q, %v", f, ok)
	}
	if f, ok := ParseFormat(""); !ok || f != FormatCSV {
		t.Fatalf("ParseFormat(empty) = %q, %v", f, ok)
	}
	if _, ok := ParseFormat("pdf"); ok {
		t.Fatal("ParseFormat(pdf) ok = true")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := Render(FormatCSV, Options{}, sampleSheet(), consolidate.Sheet{Header: []string{"ignored"}})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(string(out), "ignored") {
		t.Fatal("CSV rendered more than the first sheet")
	}
	if _, err := Render(Format("pdf"), Options{}); err == nil {
		t.Fatal("Render(pdf) expected error")
	}
}

package export

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxFilenameLen  = 50
	maxSheetNameLen = 31
	timestampLayout = "20060102_150405"
)

var (
	reFileReserved  = regexp.MustCompile(`[<>:"/\\|?*]`)
	reWhitespace    = regexp.MustCompile(`\s+`)
	reSheetReserved = regexp.MustCompile(`[\\/?*\[\]:]`)
)

// SanitizeFilename makes name safe as a file name on common file systems.
func SanitizeFilename(name string) string {
	s := reFileReserved.ReplaceAllString(name, "_")
	s = reWhitespace.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._-")
	s = truncate(s, maxFilenameLen)
	if s == "" {
		return "document"
	}
	return s
}

// SanitizeSheetName makes name valid as an Excel sheet name. Names longer
// than 31 characters keep 28 and end with "...".
func SanitizeSheetName(name string) string {
	s := strings.TrimSpace(reSheetReserved.ReplaceAllString(name, "_"))
	if utf8.RuneCountInString(s) > maxSheetNameLen {
		s = truncate(s, maxSheetNameLen-3) + "..."
	}
	if s == "" {
		return "Extraction"
	}
	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// DocumentFilename is the export name of one document.
func DocumentFilename(document string, f Format) string {
	return SanitizeFilename(document) + "." + f.Ext()
}

// GlobalFilename is the name of the consolidated export of a run ended at ts.
func GlobalFilename(ts time.Time, f Format) string {
	return "extraction_globale_consolidee_" + ts.Format(timestampLayout) + "." + f.Ext()
}

// ArchiveFilename is the name of the bundle of per-document exports.
func ArchiveFilename(ts time.Time, f Format) string {
	return "extraction_" + f.Ext() + "_individuels_" + ts.Format(timestampLayout) + ".zip"
}

// uniqueName returns name, or name with a "_<n>" suffix before the
// extension when it is already in use.
func uniqueName(name string, used map[string]struct{}) string {
	candidate := name
	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for n := 2; ; n++ {
		if _, ok := used[candidate]; !ok {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = base + "_" + strconv.Itoa(n) + ext
	}
}

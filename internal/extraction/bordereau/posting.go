package bordereau

import (
	"regexp"
	"strings"
)

// PostingColumns are appended to the schema of a category with posting
// details (A5), after its canonical columns.
var PostingColumns = []string{
	"UM_code", "UM_char",
	"DUM_code", "DUM_char",
	"SDUM_code", "SDUM_char",
	"FSDUM_code", "FSDUM_char",
	"Emploi_candidature", "Lieu_de_travail", "Publié_sous_le",
	"Nombre_demploi", "Date_de_forclusion",
	"Motif", "Position_candidature", "GF_de_publication",
	"CERNE", "Reference_My_HR",
}

// Posting is the job posting printed above an A5 candidate table.
type Posting struct {
	UMCode, UMLabel       string
	DUMCode, DUMLabel     string
	SDUMCode, SDUMLabel   string
	FSDUMCode, FSDUMLabel string

	Emploi         string
	LieuDeTravail  string
	PublieSousLe   string
	NombreEmplois  string
	DateForclusion string

	Motif         string
	Position      string
	GFPublication string

	CERNE         string
	ReferenceMyHR string
}

var (
	reEmploi = regexp.MustCompile(`Emploi : (.*?) Lieu de travail (.*?) Publié sous le n° (.+)`)
	reMotif  = regexp.MustCompile(`Motif (.*?) Position (.*?) GF de publication (.+)`)
	reCERNE  = regexp.MustCompile(`CERNE\s*:\s*(.*?)\s+Référence MyHR\s+(.+)`)
)

const (
	nombreEmploisPrefix = "Nombre d'emploi(s) "
	forclusionMarker    = "Date de forclusion"
)

// ParsePosting reads the posting details from the page text. Lines that do
// not match a known label are ignored; missing details stay empty.
func ParsePosting(context string) Posting {
	var p Posting
	for _, line := range strings.Split(context, "\n") {
		line = collapse(apostrophes.Replace(line))
		if line == "" {
			continue
		}
		p.parseLine(line)
	}
	return p
}

func (p *Posting) parseLine(line string) {
	switch {
	case strings.HasPrefix(line, "UM :"):
		p.UMCode, p.UMLabel = unitParts(line)
	case strings.HasPrefix(line, "DUM :"):
		p.DUMCode, p.DUMLabel = unitParts(line)
	case strings.HasPrefix(line, "SDUM :"):
		p.SDUMCode, p.SDUMLabel = unitParts(line)
	case strings.HasPrefix(line, "FSDUM :"):
		p.FSDUMCode, p.FSDUMLabel = unitParts(line)
	case strings.HasPrefix(line, "Emploi :"):
		if m := reEmploi.FindStringSubmatch(line); m != nil {
			p.Emploi = strings.TrimSpace(m[1])
			p.LieuDeTravail = strings.TrimSpace(m[2])
			p.PublieSousLe = strings.TrimSpace(m[3])
		}
	case strings.HasPrefix(line, nombreEmploisPrefix):
		p.parseNombreEmplois(strings.TrimPrefix(line, nombreEmploisPrefix))
	case strings.HasPrefix(line, "Motif "):
		if m := reMotif.FindStringSubmatch(line); m != nil {
			p.Motif = strings.TrimSpace(m[1])
			p.Position = strings.TrimSpace(m[2])
			p.GFPublication = strings.TrimSpace(m[3])
		}
	case strings.HasPrefix(line, "CERNE"):
		if m := reCERNE.FindStringSubmatch(line); m != nil {
			p.CERNE = strings.TrimSpace(m[1])
			p.ReferenceMyHR = strings.TrimSpace(m[2])
		}
	}
}

// parseNombreEmplois handles "2 PARIS Date de forclusion 12/03/2024": the
// count, the end of the work location wrapped from the previous line and
// the closing date.
func (p *Posting) parseNombreEmplois(rest string) {
	before, date, _ := strings.Cut(rest, forclusionMarker)
	p.DateForclusion = strings.TrimSpace(date)

	count, location, _ := strings.Cut(strings.TrimSpace(before), " ")
	p.NombreEmplois = count
	if location = strings.TrimSpace(location); location != "" {
		p.LieuDeTravail = strings.TrimSpace(p.LieuDeTravail + " " + location)
	}
}

// unitParts splits "UM : 1234 DIRECTION XYZ" into code and label.
func unitParts(line string) (code, label string) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", ""
	}
	return parts[2], strings.Join(parts[3:], " ")
}

// Values returns the details aligned with PostingColumns.
func (p Posting) Values() []string {
	return []string{
		p.UMCode, p.UMLabel,
		p.DUMCode, p.DUMLabel,
		p.SDUMCode, p.SDUMLabel,
		p.FSDUMCode, p.FSDUMLabel,
		p.Emploi, p.LieuDeTravail, p.PublieSousLe,
		p.NombreEmplois, p.DateForclusion,
		p.Motif, p.Position, p.GFPublication,
		p.CERNE, p.ReferenceMyHR,
	}
}

package pdftable

var (
	BuildPDF   = buildPDF
	TextAt     = textAt
	RuledTable = ruledTable
)

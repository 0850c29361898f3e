package sports

import (
	"strings"
)

// TeamDirectory maps full team names (as odds vendors spell them) to the
// exchange's 3-letter team codes, so consensus odds keyed by name can be
// matched against markets keyed by ticker team code.
type TeamDirectory struct {
	byName map[string]string // normalized name -> team code
	byCode map[string]string // team code -> canonical full name
}

// NewTeamDirectory builds a directory from a code->name table (e.g. the
// league's roster for a season).
func NewTeamDirectory(codeToName map[string]string) *TeamDirectory {
	d := &TeamDirectory{
		byName: make(map[string]string, len(codeToName)),
		byCode: make(map[string]string, len(codeToName)),
	}
	for code, name := range codeToName {
		code = NormalizeTeamCode(code)
		d.byCode[code] = name
		d.byName[normalizeTeamName(name)] = code
	}
	return d
}

// CodeForName resolves an odds vendor's team name to an exchange team code.
func (d *TeamDirectory) CodeForName(name string) (string, bool) {
	code, ok := d.byName[normalizeTeamName(name)]
	return code, ok
}

// NameForCode resolves an exchange team code to its canonical full name.
func (d *TeamDirectory) NameForCode(code string) (string, bool) {
	name, ok := d.byCode[NormalizeTeamCode(code)]
	return name, ok
}

func normalizeTeamName(name string) string {
	name = foldAccents(strings.ToLower(name))
	for _, suffix := range []string{" fc", " afc"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(name), " "))
}

package heuristics

import (
	"regexp"
	"strings"
)

var stateNames = map[string]string{
	"AC": "Acre",
	"AL": "Alagoas",
	"AP": "Amapá",
	"AM": "Amazonas",
	"BA": "Bahia",
	"CE": "Ceará",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
	"GO": "Goiás",
	"MA": "Maranhão",
	"MT": "Mato Grosso",
	"MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais",
	"PA": "Pará",
	"PB": "Paraíba",
	"PR": "Paraná",
	"PE": "Pernambuco",
	"PI": "Piauí",
	"RJ": "Rio de Janeiro",
	"RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul",
	"RO": "Rondônia",
	"RR": "Roraima",
	"SC": "Santa Catarina",
	"SP": "São Paulo",
	"SE": "Sergipe",
	"TO": "Tocantins",
}

var stateByName = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for code, name := range stateNames {
		m[NormalizeTitle(name)] = code
	}
	return m
}()

// capitalNamedAfterState holds states whose capital has the state's name, so
// a bare "São Paulo" is read as the city rather than the state alone.
var capitalNamedAfterState = map[string]bool{
	"SP": true,
	"RJ": true,
}

var locationPattern = regexp.MustCompile(`^(.*?)\s*(?:-|–|/|,|\()\s*([A-Za-z]{2})\)?$`)

// StateCode resolves a two-letter code or a full state name to the
// upper-case code. Unknown input returns ok == false.
func StateCode(s string) (string, bool) {
	s = CollapseSpace(s)
	if len(s) == 2 {
		code := strings.ToUpper(s)
		_, ok := stateNames[code]
		return code, ok
	}
	code, ok := stateByName[NormalizeTitle(s)]
	return code, ok
}

// SplitLocation splits "Cidade - UF", "Cidade/UF", "Cidade, UF" or
// "Cidade (UF)" into its parts. A bare state code or name yields only the
// state, except "São Paulo" and "Rio de Janeiro" which yield the capital and
// its state. When no state suffix is recognised the whole text is the city.
// The state is returned as written; callers validate it with StateCode.
func SplitLocation(text string) (city, state string) {
	text = CollapseSpace(text)
	if text == "" {
		return "", ""
	}
	if code, ok := StateCode(text); ok {
		if len(text) > 2 && capitalNamedAfterState[code] {
			return text, code
		}
		return "", code
	}
	if m := locationPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.ToUpper(m[2])
	}
	return text, ""
}

// LooksLikeLocation reports whether line ends in a known state suffix.
func LooksLikeLocation(line string) bool {
	line = CollapseSpace(line)
	if len(line) > 80 {
		return false
	}
	m := locationPattern.FindStringSubmatch(line)
	if m == nil || !HasLetters(m[1]) {
		return false
	}
	_, ok := StateCode(m[2])
	return ok
}

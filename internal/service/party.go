package service

import (
	"regexp"
	"strings"
)

// The affidavit portal lists full party names while callers usually supply
// the ballot abbreviation. Both sides normalize through this table before
// comparison.
var partyAliases = map[string]string{
	"bjp":          "bharatiya janata party",
	"inc":          "indian national congress",
	"bsp":          "bahujan samaj party",
	"cpi":          "communist party of india",
	"cpi(m)":       "communist party of india (marxist)",
	"cpi(ml)(l)":   "communist party of india (marxist-leninist) (liberation)",
	"ncp":          "nationalist congress party",
	"aap":          "aam aadmi party",
	"sp":           "samajwadi party",
	"jd(u)":        "janata dal (united)",
	"rld":          "rashtriya lok dal",
	"shs":          "shivsena",
	"tdp":          "telugu desam party",
	"dmk":          "dravida munnetra kazhagam",
	"aimim":        "all india majlis-e-ittehadul muslimeen",
	"ind":          "independent",
	"ggp":          "goa suraksha manch",
	"jkp":          "jammu & kashmir peoples democratic party",
	"ld":           "lok dal",
	"ukd":          "uttarakhand kranti dal",
	"ljp":          "lok jan shakti party",
	"rkp":          "rashtriya krantikari party",
	"bhvsp":        "bhartiya hindu shakti",
	"gpp":          "garvi paltan party",
	"vajp":         "vanchit jamat party",
	"rpi":          "republican party of india",
	"ekta shakti":  "ekta shakti party",
	"bkd":          "bahujan kranti dal",
	"jmm":          "jharkhand mukti morcha",
}

var (
	reFold   = regexp.MustCompile(`\s+`)
	reParens = regexp.MustCompile(`\s*\([^)]*\)\s*`)
)

func normalizeText(s string) string {
	return strings.TrimSpace(reFold.ReplaceAllString(strings.ToLower(s), " "))
}

// normalizeParty folds a party label to its canonical full name.
func normalizeParty(s string) string {
	key := normalizeText(s)
	if full, ok := partyAliases[key]; ok {
		return full
	}
	return key
}

// normalizeConstituency drops district parentheticals and non-breaking
// spaces the portal mixes into constituency labels.
func normalizeConstituency(s string) string {
	s = reParens.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")
	return normalizeText(s)
}

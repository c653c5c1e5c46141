// Package metadata builds the per-market MetadataRecord: the final market
// definition enriched with pre-in-play ladder snapshots, post-market
// winner/favourite extraction, and sport-specific additions.
package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

// Sport selects the market/country filter pair and the post-market hook a
// file is processed with. It does not select the destination database:
// that name comes from the store configuration whatever the sport.
type Sport string

const (
	Football    Sport = "football"
	Tennis      Sport = "tennis"
	HorseRacing Sport = "horseracing"
)

// ParseSport validates a configured sport name.
func ParseSport(s string) (Sport, error) {
	switch Sport(strings.ToLower(s)) {
	case Football:
		return Football, nil
	case Tennis:
		return Tennis, nil
	case HorseRacing:
		return HorseRacing, nil
	default:
		return "", fmt.Errorf("metadata: unknown sport %q", s)
	}
}

// Filter is a compiled market-type/country-code regex pair used to gate
// which market files a sport processes.
type Filter struct {
	MarketType *regexp.Regexp
	Country    *regexp.Regexp
}

// Matches reports whether marketType and countryCode both satisfy the
// filter. A missing field arrives here as an empty string, which fails the
// anchored market-type regexes and passes the `.*` country regexes.
func (f Filter) Matches(marketType, countryCode string) bool {
	return f.MarketType.MatchString(marketType) && f.Country.MatchString(countryCode)
}

var filters = map[Sport]Filter{
	Football: {
		MarketType: regexp.MustCompile(`(^MATCH_ODDS$)|(OVER)|(UNDER)|(_OU_)`),
		Country:    regexp.MustCompile(`.*`),
	},
	Tennis: {
		MarketType: regexp.MustCompile(`(^MATCH_ODDS$)`),
		Country:    regexp.MustCompile(`.*`),
	},
	HorseRacing: {
		MarketType: regexp.MustCompile(`(^WIN$)|(^EACH_WAY$)`),
		Country:    regexp.MustCompile(`(GB)|(IE)`),
	},
}

// FilterFor returns the compiled filter for sport. Sport values only ever
// come from ParseSport, so the lookup cannot miss.
func FilterFor(sport Sport) Filter {
	return filters[sport]
}

var (
	distanceRE = regexp.MustCompile(`\d+m\d*f|\d+m|\d+f`)
)

// SportHook extends a metadata record with sport-specific post-market
// fields. Football and tennis are no-ops; horse racing adds race-type,
// distance, and handicap flags for WIN markets.
type SportHook interface {
	ExtendPostMarket(rec Record, marketType, marketName string)
}

// HookFor returns the SportHook for sport.
func HookFor(sport Sport) SportHook {
	switch sport {
	case HorseRacing:
		return horseRacingHook{}
	default:
		return noopHook{}
	}
}

type noopHook struct{}

func (noopHook) ExtendPostMarket(Record, string, string) {}

type horseRacingHook struct{}

// ExtendPostMarket runs only for marketType == "WIN", deriving race type,
// distance, and handicap flag from the market name.
func (horseRacingHook) ExtendPostMarket(rec Record, marketType, marketName string) {
	if marketType != "WIN" {
		return
	}
	rec["raceTypeAdjusted"] = raceType(marketName)
	if d := distanceRE.FindString(marketName); d != "" {
		rec["distance"] = d
	}
	rec["isHandicap"] = strings.Contains(marketName, "Hcap") || strings.Contains(marketName, "Handicap")
}

func raceType(name string) string {
	switch {
	case strings.Contains(name, "Hrd") || strings.Contains(name, "Hurdle"):
		return "Hurdle"
	case strings.Contains(name, "Chs") || strings.Contains(name, "Chase"):
		return "Chase"
	case strings.Contains(name, "INHF"):
		return "NH Flat"
	default:
		return "Flat"
	}
}

package store

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

//nolint:gochecknoglobals // fixed lookup tables
var (
	filePatterns = map[Kind][]*regexp.Regexp{
		KindTelemetry: {regexp.MustCompile(`(?i)telemetry`)},
		KindLapTime:   {regexp.MustCompile(`(?i)lap[_ ]?time`)},
		KindLapStart:  {regexp.MustCompile(`(?i)lap[_ ]?start`)},
		KindLapEnd:    {regexp.MustCompile(`(?i)lap[_ ]?end`)},
		KindResults: {
			regexp.MustCompile(`(?i)results by class`),
			regexp.MustCompile(`(?i)provisional results`),
			regexp.MustCompile(`(?i)results`),
		},
		KindWeather: {regexp.MustCompile(`(?i)weather`)},
	}

	// kinds whose text sources get transcoded to Parquet on first touch
	autoConvertKinds = []Kind{KindTelemetry, KindLapTime, KindLapStart, KindLapEnd}

	racePattern = regexp.MustCompile(`(?i)(R\d+)`)
)

func matchesKind(name string, kind Kind) bool {
	patterns, ok := filePatterns[kind]
	if !ok {
		patterns = []*regexp.Regexp{regexp.MustCompile("(?i)" + regexp.QuoteMeta(string(kind)))}
	}
	return lo.SomeBy(patterns, func(p *regexp.Regexp) bool { return p.MatchString(name) })
}

func shouldConvert(name string) bool {
	return lo.SomeBy(autoConvertKinds, func(k Kind) bool { return matchesKind(name, k) })
}

// raceTokens expands a race id like "R1" into the filename spellings found in
// the wild ("race 1", "r1", "race1").
func raceTokens(race string) []string {
	race = strings.TrimSpace(race)
	if race == "" {
		return nil
	}
	lower := strings.ToLower(race)
	tokens := []string{lower}
	if len(race) > 1 {
		tokens = append([]string{"race " + lower[1:]}, tokens...)
	}
	tokens = append(tokens, strings.ReplaceAll(lower, "r", "race"))
	return lo.Uniq(tokens)
}

func nameMatchesRace(name string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	lname := strings.ToLower(name)
	return lo.SomeBy(tokens, func(t string) bool { return strings.Contains(lname, t) })
}

func fileExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// findFile locates the file for (circuit, race, kind), preferring a Parquet
// candidate when it is at least as fresh as its CSV sibling. Candidates are
// scanned in sorted name order so resolution is deterministic.
func (s *Store) findFile(circuit, race string, kind Kind) (string, error) {
	dir := filepath.Join(s.dataDir, circuit)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ErrNotFound
	}
	tokens := raceTokens(race)

	matches := func(ext string) []string {
		ret := make([]string, 0)
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if fileExt(name) != ext {
				continue
			}
			if matchesKind(name, kind) && nameMatchesRace(name, tokens) {
				ret = append(ret, filepath.Join(dir, name))
			}
		}
		sort.Strings(ret)
		return ret
	}

	parquets := matches(".parquet")
	csvs := matches(".csv")

	if len(parquets) > 0 {
		best := parquets[0]
		if len(csvs) == 0 || !isStale(best, csvs[0]) {
			return best, nil
		}
	}
	if len(csvs) > 0 {
		return csvs[0], nil
	}
	return "", ErrNotFound
}

// isStale reports whether the derived file is older than its source.
func isStale(derived, source string) bool {
	di, err := os.Stat(derived)
	if err != nil {
		return true
	}
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	return di.ModTime().Before(si.ModTime())
}

// CircuitDirs lists circuit directories that carry both telemetry and lap
// time data in any format.
func (s *Store) CircuitDirs() []string {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil
	}
	ret := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(s.dataDir, e.Name())
		if s.dirHasKind(dir, KindTelemetry) && s.dirHasKind(dir, KindLapTime) {
			ret = append(ret, e.Name())
		}
	}
	sort.Strings(ret)
	return ret
}

func (s *Store) dirHasKind(dir string, kind Kind) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := fileExt(e.Name())
		if (ext == ".parquet" || ext == ".csv") && matchesKind(e.Name(), kind) {
			return true
		}
	}
	return false
}

// DiscoverRaces extracts race ids (R1, R2, ...) from the filenames of a
// circuit directory.
func (s *Store) DiscoverRaces(circuit string) []string {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, circuit))
	if err != nil {
		return nil
	}
	races := map[string]struct{}{}
	for _, e := range entries {
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if m := racePattern.FindString(stem); m != "" {
			races[strings.ToUpper(m)] = struct{}{}
		}
	}
	ret := lo.Keys(races)
	sort.Strings(ret)
	return ret
}

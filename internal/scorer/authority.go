package scorer

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/deep-research/internal/canon"
)

// AuthorityRule assigns Score to hosts matching any of its patterns.
//
// TLDs match the host's last label, or the second-to-last label when the
// last one is a two-letter country code, so "gov" matches both cdc.gov and
// www.gov.uk but "ac" does not match foo.ac.com. Domains match the host itself
// or any subdomain. Contains matches any host containing the substring.
type AuthorityRule struct {
	Name     string   `yaml:"name"`
	Score    float64  `yaml:"score"`
	TLDs     []string `yaml:"tlds"`
	Domains  []string `yaml:"domains"`
	Contains []string `yaml:"contains"`
}

// AuthorityTable is an ordered list of rules; the first matching rule wins.
type AuthorityTable struct {
	Rules      []AuthorityRule `yaml:"rules"`
	MultiLabel float64         `yaml:"multi_label"`
	Default    float64         `yaml:"default"`
	Malformed  float64         `yaml:"malformed"`
}

// DefaultAuthorityTable returns the built-in host authority table.
func DefaultAuthorityTable() AuthorityTable {
	return AuthorityTable{
		Rules: []AuthorityRule{
			{Name: "government", Score: 1.0, TLDs: []string{"gov", "gob", "mil"}},
			{Name: "academic", Score: 0.96, TLDs: []string{"edu", "ac"}},
			{
				Name:    "intergovernmental",
				Score:   0.95,
				TLDs:    []string{"int"},
				Domains: []string{"who.int", "un.org", "worldbank.org", "imf.org", "oecd.org", "europa.eu"},
			},
			{
				Name:    "wire",
				Score:   0.9,
				Domains: []string{"reuters.com", "apnews.com", "afp.com", "bloomberg.com", "efe.com"},
			},
			{
				Name:  "scholarly",
				Score: 0.9,
				Domains: []string{
					"nature.com", "sciencedirect.com", "springer.com", "wiley.com", "arxiv.org",
					"jstor.org", "thelancet.com", "nejm.org", "science.org",
				},
				Contains: []string{"pubmed"},
			},
			{
				Name:  "reference",
				Score: 0.75,
				Domains: []string{
					"wikipedia.org", "britannica.com", "bbc.co.uk", "bbc.com", "nytimes.com",
					"theguardian.com", "elpais.com",
				},
			},
		},
		MultiLabel: 0.62,
		Default:    0.55,
		Malformed:  0.45,
	}
}

// LoadAuthorityTable reads an authority table from a YAML file. Fallback
// scores left unset in the file keep their built-in values.
func LoadAuthorityTable(path string) (AuthorityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AuthorityTable{}, eris.Wrapf(err, "scorer: read authority table %s", path)
	}

	def := DefaultAuthorityTable()
	var t AuthorityTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return AuthorityTable{}, eris.Wrap(err, "scorer: parse authority table")
	}
	if len(t.Rules) == 0 {
		return AuthorityTable{}, eris.New("scorer: authority table has no rules")
	}
	for i, r := range t.Rules {
		if r.Score < 0 || r.Score > 1 {
			return AuthorityTable{}, eris.Errorf("scorer: authority rule %d (%s) score %.2f out of range", i, r.Name, r.Score)
		}
	}
	if t.MultiLabel == 0 {
		t.MultiLabel = def.MultiLabel
	}
	if t.Default == 0 {
		t.Default = def.Default
	}
	if t.Malformed == 0 {
		t.Malformed = def.Malformed
	}
	return t, nil
}

// Score returns the authority of rawURL's host.
func (t AuthorityTable) Score(rawURL string) float64 {
	host, ok := canon.Host(rawURL)
	if !ok {
		return t.Malformed
	}
	labels := strings.Split(host, ".")
	for _, r := range t.Rules {
		if r.matches(host, labels) {
			return r.Score
		}
	}
	if len(labels) >= 3 {
		return t.MultiLabel
	}
	return t.Default
}

func (r AuthorityRule) matches(host string, labels []string) bool {
	if len(labels) >= 2 {
		tail := labels[len(labels)-2:]
		for _, tld := range r.TLDs {
			if tail[1] == tld || (len(tail[1]) == 2 && tail[0] == tld) {
				return true
			}
		}
	}
	for _, d := range r.Domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	for _, c := range r.Contains {
		if strings.Contains(host, c) {
			return true
		}
	}
	return false
}

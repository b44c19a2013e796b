// Package wikilang resolves a user-supplied wiki identifier (a language
// name, code, or database name such as "en", "English" or "enwiki") to the
// canonical Wikipedia site it refers to. Grounded on the teacher's
// language.go, which queries the Wikimedia Commons sitematrix API.
package wikilang

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Wiki identifies one language edition of Wikipedia.
type Wiki struct {
	Name     string // e.g. "English"
	Code     string // e.g. "en"
	Database string // e.g. "enwiki", used as the dump directory/file prefix
}

const sitematrixURL = "https://commons.wikimedia.org/w/api.php?format=json&action=sitematrix"

// Resolve looks up a wiki by name, language code, or database name against
// the Wikimedia sitematrix. Case-insensitive.
func Resolve(search string) (Wiki, error) {
	resp, err := http.Get(sitematrixURL)
	if err != nil {
		return Wiki{}, fmt.Errorf("wikilang: fetching sitematrix: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		RawSites map[string]json.RawMessage `json:"sitematrix"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Wiki{}, fmt.Errorf("wikilang: decoding sitematrix: %w", err)
	}

	for key, raw := range payload.RawSites {
		if key == "specials" || key == "count" {
			continue
		}
		var site struct {
			Code     string `json:"code"`
			Name     string `json:"name"`
			Subsites []struct {
				URL    string `json:"url"`
				Dbname string `json:"dbname"`
			} `json:"site"`
		}
		if err := json.Unmarshal(raw, &site); err != nil {
			continue
		}
		for _, sub := range site.Subsites {
			if !strings.Contains(sub.URL, "wikipedia.org") {
				continue
			}
			wiki := Wiki{Name: titleCase(site.Name), Code: site.Code, Database: sub.Dbname}
			if strings.EqualFold(search, wiki.Name) || strings.EqualFold(search, wiki.Code) || strings.EqualFold(search, wiki.Database) {
				return wiki, nil
			}
		}
	}

	return Wiki{}, fmt.Errorf("wikilang: wiki %q not found", search)
}

// titleCase upper-cases the first rune of each word, avoiding the
// deprecated strings.Title.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

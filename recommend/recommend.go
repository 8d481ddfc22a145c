// Package recommend suggests artists from a fixed table of similar artists.
package recommend

import (
	"slices"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
)

// Artist is an artist users can pick as a preference.
type Artist struct {
	Name        string `json:"name"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

// InitialArtists are offered when a user sets up preferences.
var InitialArtists = []Artist{
	{Name: "Кишлак", Genre: "Rap", Description: "Russian rap, lyrical"},
	{Name: "Oxxxymiron", Genre: "Rap", Description: "Intellectual rap"},
	{Name: "Скриптонит", Genre: "Hip-hop", Description: "Kazakh hip-hop"},
	{Name: "Face", Genre: "Cloud rap", Description: "Melodic rap"},
	{Name: "Miyagi & Andy Panda", Genre: "Hip-hop", Description: "Positive hip-hop"},
	{Name: "ЛСП", Genre: "Indie rap", Description: "Alternative rap"},
	{Name: "Каста", Genre: "Rap", Description: "Classic Russian rap"},
	{Name: "Баста", Genre: "Rap", Description: "Popular Russian rap"},
	{Name: "T-Fest", Genre: "Trap", Description: "Modern trap"},
	{Name: "Pharaoh", Genre: "Cloud rap", Description: "Emotional rap"},
	{Name: "MORGENSHTERN", Genre: "Trap", Description: "Commercial trap"},
	{Name: "Элджей", Genre: "Pop rap", Description: "Melodic pop rap"},
}

// SimilarArtists maps an artist name to artists that sound alike.
var SimilarArtists = map[string][]Artist{
	"Кишлак": {
		{Name: "Слава КПСС", Genre: "Rap", Description: "Experimental rap"},
		{Name: "Сд", Genre: "Rap", Description: "Lyrical rap"},
		{Name: "Boulevard Depo", Genre: "Rap", Description: "Alternative rap"},
	},
	"Oxxxymiron": {
		{Name: "Noize MC", Genre: "Rap rock", Description: "Social rap"},
		{Name: "Соня Мармеладова", Genre: "Rap", Description: "Female rap"},
		{Name: "ATL", Genre: "Rap", Description: "Group rap"},
	},
	"Скриптонит": {
		{Name: "104", Genre: "Hip-hop", Description: "Kazakh rap"},
		{Name: "Truwer", Genre: "Hip-hop", Description: "Melodic hip-hop"},
		{Name: "Jah Khalib", Genre: "R&B", Description: "R&B with rap"},
	},
}

// Similar returns the artists similar to any of selected, in table order,
// without duplicates and without the selected artists themselves.
func Similar(selected []string) []Artist {
	var similar []Artist
	for _, name := range selected {
		similar = append(similar, SimilarArtists[name]...)
	}
	similar = lo.UniqBy(similar, func(a Artist) string {
		return a.Name
	})
	return lo.Reject(similar, func(a Artist, _ int) bool {
		return slices.Contains(selected, a.Name)
	})
}

// Known returns every artist in the table.
func Known() []Artist {
	all := slices.Clone(InitialArtists)
	for _, name := range lo.Keys(SimilarArtists) {
		all = append(all, SimilarArtists[name]...)
	}
	all = lo.UniqBy(all, func(a Artist) string {
		return a.Name
	})
	slices.SortStableFunc(all, func(a, b Artist) int {
		return strings.Compare(a.Name, b.Name)
	})
	return all
}

// Resolve returns the known artist closest to name, comparing lower-cased
// names by edit distance. It returns false if name is further than
// maxDistance edits from every known artist.
func Resolve(name string, maxDistance int) (Artist, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Artist{}, false
	}
	best := lo.MinBy(Known(), func(a, b Artist) bool {
		return distance(key, a.Name) < distance(key, b.Name)
	})
	if distance(key, best.Name) > maxDistance {
		return Artist{}, false
	}
	return best, true
}

func distance(key, name string) int {
	return levenshtein.Distance(key, strings.ToLower(name))
}

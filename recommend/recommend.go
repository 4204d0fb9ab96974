// Package recommend scores catalog books against a reader's stated
// preferences with a fixed keyword heuristic.
package recommend

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"simpus/models"
)

const (
	maxResults      = 6
	minScore        = 20
	minResults      = 3
	popularFallback = 30
)

// Preferences are the answers of the recommendation questionnaire. Empty
// or "any" means no preference.
type Preferences struct {
	Genre      string `json:"genre"`
	Mood       string `json:"mood"`
	Length     string `json:"length"`
	Setting    string `json:"setting"`
	Experience string `json:"experience"`
}

// Recommendation is a book with its match score and up to three reasons.
type Recommendation struct {
	models.Book
	MatchScore  int      `json:"matchScore"`
	Reasons     []string `json:"reasons"`
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
}

// MarshalJSON keeps the book fields (and availableCopies) at the top level;
// the promoted Book.MarshalJSON would otherwise drop the score fields.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Book)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["matchScore"] = r.MatchScore
	fields["reasons"] = r.Reasons
	fields["rating"] = r.Rating
	fields["reviewCount"] = r.ReviewCount
	return json.Marshal(fields)
}

var moodWords = map[string][]string{
	"adventure":   {"action", "adventure", "thriller", "mystery"},
	"thoughtful":  {"philosophy", "literature", "biography", "history"},
	"light":       {"comedy", "romance", "young adult", "children"},
	"mysterious":  {"mystery", "thriller", "suspense", "crime"},
	"emotional":   {"romance", "drama", "biography", "memoir"},
	"educational": {"non-fiction", "science", "history", "biography"},
}

var settingWords = map[string][]string{
	"contemporary":  {"modern", "contemporary", "current", "today"},
	"historical":    {"history", "historical", "past", "ancient"},
	"fantasy-world": {"fantasy", "magic", "dragon", "wizard"},
	"space":         {"space", "future", "sci-fi", "galaxy", "planet"},
	"real-world":    {"travel", "country", "city", "place"},
}

var experienceWords = map[string][]string{
	"page-turner":       {"thriller", "mystery", "suspense", "action"},
	"character-driven":  {"biography", "memoir", "drama", "literature"},
	"plot-driven":       {"mystery", "thriller", "adventure", "crime"},
	"atmospheric":       {"fantasy", "horror", "gothic", "literature"},
	"thought-provoking": {"philosophy", "science", "history", "biography"},
	"entertaining":      {"comedy", "romance", "adventure", "young adult"},
}

func wants(v string) bool {
	return v != "" && v != "any"
}

// Score returns the match score of b for p and the reasons that contributed,
// capped at three.
func Score(b models.Book, p Preferences) (int, []string) {
	score := 0.0
	var reasons []string
	text := strings.ToLower(b.Title + " " + b.Author + " " + b.Category)

	if wants(p.Genre) {
		if b.Category != "" && strings.Contains(strings.ToLower(b.Category), strings.ToLower(p.Genre)) {
			score += 40
			reasons = append(reasons, "Matches your preferred genre")
		}
	} else {
		score += 20
	}

	if p.Mood != "" && containsAny(text, moodWords[p.Mood]) {
		score += 25
		reasons = append(reasons, "Matches your reading mood")
	}

	if wants(p.Length) {
		// Tidak ada jumlah halaman di katalog; perkiraan kasar dari panjang judul/penulis.
		pages := float64(len(b.Title))*2 + float64(len(b.Author))*1.5
		if (p.Length == "short" && pages < 200) ||
			(p.Length == "medium" && pages >= 200 && pages <= 400) ||
			(p.Length == "long" && pages > 400) {
			score += 15
			reasons = append(reasons, "Matches your preferred length")
		}
	}

	if wants(p.Setting) && containsAny(text, settingWords[p.Setting]) {
		score += 10
		reasons = append(reasons, "Matches your preferred setting")
	}

	if p.Experience != "" && containsAny(text, experienceWords[p.Experience]) {
		score += 10
		reasons = append(reasons, "Matches your preferred experience")
	}

	if b.BorrowedCount > 0 {
		score += math.Min(5, float64(b.BorrowedCount)*0.5)
		reasons = append(reasons, "Popular among readers")
	}

	if b.TotalCopies-b.BorrowedCount > 0 {
		score += 2
	}

	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return int(math.Floor(score + 0.5)), reasons
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Recommend ranks books for p and keeps the best six scoring above 20. When
// fewer than three remain, popular books not already chosen are appended
// with a fixed score. ratings annotates each result with its public rating.
func Recommend(books, popular []models.Book, ratings map[string]models.BookRating, p Preferences) []Recommendation {
	scored := make([]Recommendation, 0, len(books))
	for _, b := range books {
		s, reasons := Score(b, p)
		scored = append(scored, Recommendation{Book: b, MatchScore: s, Reasons: reasons})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	out := make([]Recommendation, 0, maxResults)
	for _, r := range scored {
		if r.MatchScore > minScore {
			out = append(out, r)
		}
	}

	if len(out) < minResults {
		chosen := make(map[string]bool, len(out))
		for _, r := range out {
			chosen[r.ID] = true
		}
		for _, b := range popular {
			if chosen[b.ID] {
				continue
			}
			chosen[b.ID] = true
			out = append(out, Recommendation{
				Book:       b,
				MatchScore: popularFallback,
				Reasons:    []string{"Popular choice among readers"},
			})
		}
	}

	for i := range out {
		if out[i].Reasons == nil {
			out[i].Reasons = []string{}
		}
		if r, ok := ratings[out[i].ID]; ok && r.Count > 0 {
			avg := math.Round(r.Average*10) / 10
			out[i].Rating = &avg
			out[i].ReviewCount = r.Count
		}
	}
	return out
}

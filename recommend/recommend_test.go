package recommend

import (
	"encoding/json"
	"testing"

	"simpus/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(id, title, author, category string, total, borrowed int) models.Book {
	return models.Book{ID: id, Title: title, Author: author, Category: category, TotalCopies: total, BorrowedCount: borrowed}
}

func TestScore(t *testing.T) {
	b := book("1", "Murder Mystery", "Agatha", "Crime Thriller", 5, 4)

	score, reasons := Score(b, Preferences{Genre: "thriller", Mood: "mysterious", Experience: "page-turner"})
	// genre 40 + mood 25 + experience 10 + popularity 2 + available 2
	assert.Equal(t, 79, score)
	assert.Equal(t, []string{
		"Matches your preferred genre",
		"Matches your reading mood",
		"Matches your preferred experience",
	}, reasons, "reasons are capped at three")

	score, reasons = Score(book("2", "Plain", "Nobody", "", 0, 0), Preferences{Genre: "any"})
	assert.Equal(t, 20, score)
	assert.Empty(t, reasons)

	// Popularity is capped at 5 and rounds half up.
	score, _ = Score(book("3", "x", "y", "", 20, 20), Preferences{})
	assert.Equal(t, 25, score)
	score, _ = Score(book("4", "x", "y", "", 1, 1), Preferences{})
	assert.Equal(t, 21, score)
}

func TestScoreLength(t *testing.T) {
	short := book("1", "Dune", "Herbert", "", 1, 0)
	score, reasons := Score(short, Preferences{Length: "short"})
	assert.Equal(t, 20+15+2, score)
	assert.Contains(t, reasons, "Matches your preferred length")

	score, _ = Score(short, Preferences{Length: "long"})
	assert.Equal(t, 22, score)
}

func TestRecommendTopSixAboveThreshold(t *testing.T) {
	var books []models.Book
	for i, title := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		books = append(books, book(title, "Adventure "+title, "x", "Fiction", 1, i))
	}

	recs := Recommend(books, nil, nil, Preferences{Mood: "adventure"})
	require.Len(t, recs, 6)
	// Higher borrowedCount means a higher popularity boost, so "h" ranks first.
	assert.Equal(t, "h", recs[0].ID)
	for _, r := range recs {
		assert.Greater(t, r.MatchScore, 20)
		assert.Nil(t, r.Rating)
	}
}

func TestRecommendPadsWithPopular(t *testing.T) {
	books := []models.Book{
		book("m", "Space Odyssey", "Clarke", "Sci-Fi", 1, 0),
		book("z", "Cookbook", "Chef", "Food", 0, 0),
	}
	popular := []models.Book{
		book("m", "Space Odyssey", "Clarke", "Sci-Fi", 1, 0),
		book("p1", "Popular One", "A", "Novel", 5, 5),
		book("p2", "Popular Two", "B", "Novel", 5, 3),
	}
	ratings := map[string]models.BookRating{"p1": {Average: 4.26, Count: 3}}

	recs := Recommend(books, popular, ratings, Preferences{Genre: "sci-fi", Setting: "space"})
	require.Len(t, recs, 3)
	assert.Equal(t, "m", recs[0].ID)
	assert.Equal(t, 52, recs[0].MatchScore)
	assert.Equal(t, "p1", recs[1].ID)
	assert.Equal(t, 30, recs[1].MatchScore)
	assert.Equal(t, []string{"Popular choice among readers"}, recs[1].Reasons)
	require.NotNil(t, recs[1].Rating)
	assert.Equal(t, 4.3, *recs[1].Rating)
	assert.Equal(t, 3, recs[1].ReviewCount)
	assert.Equal(t, "p2", recs[2].ID)
}

func TestRecommendationJSONKeepsBookFields(t *testing.T) {
	r := Recommendation{Book: book("1", "T", "A", "C", 3, 1), MatchScore: 42, Reasons: []string{"x"}}
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "T", got["title"])
	assert.Equal(t, float64(2), got["availableCopies"])
	assert.Equal(t, float64(42), got["matchScore"])
	assert.Nil(t, got["rating"])
	assert.Equal(t, float64(0), got["reviewCount"])
}

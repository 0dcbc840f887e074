package cafe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

func feed() []cafe.Place {
	return []cafe.Place{
		place("pop-high", 4.6, 900),
		place("pop-low", 4.1, 150),
		place("gem-high", 4.9, 40),
		place("pop-mid", 4.3, 5000),
		place("gem-low", 4.0, 12),
	}
}

func TestApplyView_MinRating(t *testing.T) {
	cafes := []cafe.Place{
		place("five", 5.0, 10),
		place("four-five", 4.5, 10),
		place("four", 4.0, 10),
		place("unrated", -1, 10),
	}

	got := cafe.ApplyView(cafes, cafe.Criteria{MinRating: 4.5, Type: cafe.TypeAll, SortBy: cafe.SortMixed})
	assert.Equal(t, []string{"five", "four-five"}, ids(got))
}

func TestApplyView_UnratedPassesZeroThreshold(t *testing.T) {
	got := cafe.ApplyView([]cafe.Place{place("unrated", -1, 200)}, cafe.DefaultCriteria())
	assert.Len(t, got, 1)
}

func TestApplyView_TypeFilters(t *testing.T) {
	popular := cafe.ApplyView(feed(), cafe.Criteria{Type: cafe.TypePopular, SortBy: cafe.SortMixed})
	assert.Equal(t, []string{"pop-high", "pop-low", "pop-mid"}, ids(popular))

	hidden := cafe.ApplyView(feed(), cafe.Criteria{Type: cafe.TypeHidden, SortBy: cafe.SortMixed})
	assert.Equal(t, []string{"gem-high", "gem-low"}, ids(hidden))
}

func TestApplyView_SortByRating(t *testing.T) {
	got := cafe.ApplyView(feed(), cafe.Criteria{Type: cafe.TypeAll, SortBy: cafe.SortRating})
	assert.Equal(t, []string{"gem-high", "pop-high", "pop-mid", "pop-low", "gem-low"}, ids(got))
}

func TestApplyView_SortByReviews(t *testing.T) {
	got := cafe.ApplyView(feed(), cafe.Criteria{Type: cafe.TypeAll, SortBy: cafe.SortReviews})
	assert.Equal(t, []string{"pop-mid", "pop-high", "pop-low", "gem-high", "gem-low"}, ids(got))
}

func TestApplyView_DoesNotMutateSource(t *testing.T) {
	src := feed()
	before := ids(src)

	_ = cafe.ApplyView(src, cafe.Criteria{Type: cafe.TypeAll, SortBy: cafe.SortRating})
	_ = cafe.ApplyView(src, cafe.Criteria{Type: cafe.TypeAll, SortBy: cafe.SortReviews})

	assert.Equal(t, before, ids(src))

	mixed := cafe.ApplyView(src, cafe.DefaultCriteria())
	assert.Equal(t, before, ids(mixed), "mixed restores the feed order")
}

func TestApplyView_Idempotent(t *testing.T) {
	c := cafe.Criteria{MinRating: 4.1, Type: cafe.TypePopular, SortBy: cafe.SortRating}
	first := cafe.ApplyView(feed(), c)
	second := cafe.ApplyView(feed(), c)
	assert.Equal(t, ids(first), ids(second))
}

func TestParseCriteria_Defaults(t *testing.T) {
	c, err := cafe.ParseCriteria("", "", "")
	require.NoError(t, err)
	assert.Equal(t, cafe.DefaultCriteria(), c)
}

func TestParseCriteria_Valid(t *testing.T) {
	c, err := cafe.ParseCriteria("4.5", "hidden", "reviews")
	require.NoError(t, err)
	assert.Equal(t, 4.5, c.MinRating)
	assert.Equal(t, cafe.TypeHidden, c.Type)
	assert.Equal(t, cafe.SortReviews, c.SortBy)
}

func TestParseCriteria_Invalid(t *testing.T) {
	cases := map[string][3]string{
		"non-numeric rating": {"lots", "all", "mixed"},
		"negative rating":    {"-1", "all", "mixed"},
		"rating above five":  {"6", "all", "mixed"},
		"unknown type":       {"0", "trendy", "mixed"},
		"unknown sort":       {"0", "all", "distance"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := cafe.ParseCriteria(in[0], in[1], in[2])
			require.Error(t, err)
		})
	}
}

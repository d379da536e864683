package catalog

import (
	"context"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"bookstore/pkg/eventlog"
)

func newTestService() Service {
	return NewService(eventlog.NewJournal(), zap.NewNop())
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ids(books []*Book) []int {
	out := make([]int, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestAddBook(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	book, err := svc.AddBook(ctx, 1, "Go in Action", "Kennedy", price("39.50"))
	require.NoError(t, err)
	assert.Equal(t, 1, book.ID)
	assert.Equal(t, "ID: 1 | Title: Go in Action | Author: Kennedy | Price: $39.50", book.String())

	found, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, book, found)
	assert.NotSame(t, book, found)
}

func TestLookupsReturnCopies(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, Seed(ctx, svc))

	added, err := svc.AddBook(ctx, 1, "Go in Action", "Kennedy", price("39.50"))
	require.NoError(t, err)
	added.Price = price("0.01")

	byID, err := svc.FindByID(ctx, 101)
	require.NoError(t, err)
	byID.Title = "changed"
	byID.Price = price("0.01")

	matches, err := svc.FindByTitle(ctx, "data")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	matches[0].Price = price("0.01")

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	listed[0].Title = "changed"

	again, err := svc.FindByID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "Java Programming", again.Title)
	assert.True(t, again.Price.Equal(price("29.99")), "price %s", again.Price)

	again, err = svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, again.Price.Equal(price("39.50")), "price %s", again.Price)

	again, err = svc.FindByID(ctx, 102)
	require.NoError(t, err)
	assert.False(t, again.Price.Equal(price("0.01")))
}

func TestAddBookDuplicateID(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddBook(ctx, 1, "A", "x", price("10"))
	require.NoError(t, err)

	_, err = svc.AddBook(ctx, 1, "B", "y", price("5"))
	assert.ErrorIs(t, err, ErrDuplicateID)

	books, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "A", books[0].Title)
}

func TestAddBookInvalidPrice(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, p := range []string{"0", "-1.5"} {
		_, err := svc.AddBook(ctx, 7, "Free", "Nobody", price(p))
		assert.ErrorIs(t, err, ErrInvalidPrice, "price %s", p)
	}

	books, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestFindByIDNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByTitle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, Seed(ctx, svc))

	tests := []struct {
		name string
		text string
		want []int
	}{
		{"case insensitive", "DATA", []int{102, 104}},
		{"substring", "gram", []int{101}},
		{"no match", "cooking", []int{}},
		{"empty matches all", "", []int{101, 102, 103, 104, 105}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := svc.FindByTitle(ctx, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(books))
		})
	}
}

func TestSortBy(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, Seed(ctx, svc))

	require.NoError(t, svc.SortBy(ctx, SortByPrice))
	books, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{103, 105, 101, 102, 104}, ids(books))

	require.NoError(t, svc.SortBy(ctx, SortByTitle))
	books, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{103, 102, 104, 101, 105}, ids(books))

	require.NoError(t, svc.SortBy(ctx, SortByID))
	books, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103, 104, 105}, ids(books))

	assert.ErrorIs(t, svc.SortBy(ctx, SortKey(42)), ErrInvalidSortKey)
}

func TestSortTitleIsOrdinal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for i, title := range []string{"beta", "Alpha", "alpha", "Beta"} {
		_, err := svc.AddBook(ctx, i+1, title, "x", price("1"))
		require.NoError(t, err)
	}

	require.NoError(t, svc.SortBy(ctx, SortByTitle))
	books, err := svc.List(ctx)
	require.NoError(t, err)

	var titles []string
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"Alpha", "Beta", "alpha", "beta"}, titles)
}

func TestSortProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := newTestService()
		ctx := context.Background()

		bookIDs := rapid.SliceOfDistinct(rapid.IntRange(1, 10_000), rapid.ID[int]).Draw(t, "ids")
		for _, id := range bookIDs {
			cents := rapid.IntRange(1, 500).Draw(t, "cents")
			title := rapid.StringMatching(`[A-Za-z ]{0,6}`).Draw(t, "title")
			_, err := svc.AddBook(ctx, id, title, "author", decimal.New(int64(cents), -2))
			require.NoError(t, err)
		}

		// price then id always ends ascending by id
		require.NoError(t, svc.SortBy(ctx, SortByPrice))
		require.NoError(t, svc.SortBy(ctx, SortByID))
		books, err := svc.List(ctx)
		require.NoError(t, err)
		want := make([]int, len(bookIDs))
		copy(want, bookIDs)
		slices.Sort(want)
		assert.Equal(t, want, ids(books))

		// equal prices keep the id order established above
		require.NoError(t, svc.SortBy(ctx, SortByPrice))
		byPrice, err := svc.List(ctx)
		require.NoError(t, err)
		for i := 1; i < len(byPrice); i++ {
			prev, cur := byPrice[i-1], byPrice[i]
			require.LessOrEqual(t, prev.Price.Cmp(cur.Price), 0)
			if prev.Price.Equal(cur.Price) {
				require.Less(t, prev.ID, cur.ID)
			}
		}

		// sorting again by the same key changes nothing
		require.NoError(t, svc.SortBy(ctx, SortByPrice))
		again, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, ids(byPrice), ids(again))
	})
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"id", SortByID, false},
		{"Title", SortByTitle, false},
		{" PRICE ", SortByPrice, false},
		{"author", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSortKey(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSortKey)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, mustParse(t, got.String()))
	}
}

func mustParse(t *testing.T, s string) SortKey {
	t.Helper()
	k, err := ParseSortKey(s)
	require.NoError(t, err)
	return k
}

func TestAddBookRecordsEvent(t *testing.T) {
	journal := eventlog.NewJournal()
	svc := NewService(journal, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddBook(ctx, 5, "Refactoring", "Fowler", price("45"))
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, 5, "Refactoring", "Fowler", price("45"))
	require.Error(t, err)

	events, err := journal.LoadEvents(ctx, "book-5", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "BookAdded", events[0].EventType)
}

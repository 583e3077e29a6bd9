package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/nola-news-watch/internal/extract"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{name: "empty", href: "", want: ""},
		{name: "loopback host", href: "http://localhost:8000/next/news/", want: "https://nola.gov/next/news/"},
		{name: "loopback with port and query", href: "http://127.0.0.1:3000/next/news/item?x=1", want: "https://nola.gov/next/news/item?x=1"},
		{name: "rooted path", href: "/next/news/mayor-update", want: "https://nola.gov/next/news/mayor-update"},
		{name: "bare relative", href: "next/news/item", want: "https://nola.gov/next/news/item"},
		{name: "already absolute", href: "https://nola.gov/next/news/item", want: "https://nola.gov/next/news/item"},
		{name: "secondary domain untouched", href: "https://nopdnews.com/article/arrest-report", want: "https://nopdnews.com/article/arrest-report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extract.NormalizeURL(tt.href))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"http://localhost:8000/next/news/",
		"/next/news/item",
		"next/news/item",
	}
	for _, href := range inputs {
		once := extract.NormalizeURL(href)
		require.Equal(t, once, extract.NormalizeURL(once), "double normalization of %q", href)
		require.NotContains(t, once, "localhost")
	}
}

func TestFindDate(t *testing.T) {
	require.Equal(t, "January 15, 2026", extract.FindDate("Posted on January 15, 2026 by staff"))
	require.Equal(t, "March 3, 2025", extract.FindDate("March 3, 2025"))
	require.Equal(t, extract.DefaultDate, extract.FindDate("no date here"))
	require.Equal(t, extract.DefaultDate, extract.FindDate(""))
}

func TestParseDate(t *testing.T) {
	ts, ok := extract.ParseDate("January 15, 2026")
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), ts)

	_, ok = extract.ParseDate(extract.DefaultDate)
	require.False(t, ok)
}

func TestInferSource(t *testing.T) {
	require.Equal(t, "NOPD News", extract.InferSource("Arrest made downtown\nFrom NOPD News"))
	require.Equal(t, "City of New Orleans", extract.InferSource("Road closures announced"))
	require.Equal(t, "City of New Orleans", extract.InferSource(""))
}

func TestFindExcerpt(t *testing.T) {
	context := "Mayor Announces Budget Plan\n" +
		"From City Hall\n" +
		"January 15, 2026\n" +
		"short line\n" +
		"The mayor outlined a comprehensive budget plan for the coming fiscal year.\n"

	got := extract.FindExcerpt(context, "Mayor Announces Budget Plan")
	require.Equal(t, "The mayor outlined a comprehensive budget plan for the coming fiscal year.", got)
}

func TestFindExcerptDefault(t *testing.T) {
	require.Equal(t, extract.DefaultExcerpt, extract.FindExcerpt("Title Only\nshort", "Title Only"))
	require.Equal(t, extract.DefaultExcerpt, extract.FindExcerpt("", "Missing"))
}

func TestFindExcerptSkipsAttributionAndDates(t *testing.T) {
	context := "Some Title\n" +
		"From NOPD News department with a very long line indeed\n" +
		"Reported widely on January 15, 2026 across several local outlets\n" +
		"Officers responded to a call in the French Quarter early Tuesday.\n"

	got := extract.FindExcerpt(context, "Some Title")
	require.Equal(t, "Officers responded to a call in the French Quarter early Tuesday.", got)
}

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain", url: "https://nola.gov/next/news/mayor-update", want: "mayor-update"},
		{name: "trailing slash", url: "https://nola.gov/next/news/mayor-update/", want: "mayor-update"},
		{name: "no path", url: "https://nola.gov", want: ""},
		{name: "empty", url: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extract.DeriveID(tt.url))
		})
	}
}

package feature

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/apirelay/featbot/internal/outbound"
)

// Song is one lyrics search result with its full lyric text.
type Song struct {
	Title  string
	Artist string
	URL    string
	Lyrics string
}

// LyricsClient searches the Genius API and scrapes full lyric text from the
// matched song page. The API client carries the bearer token; song pages are
// fetched with the separate unauthenticated page client.
type LyricsClient struct {
	api   *outbound.Client
	pages *outbound.Client
}

// NewLyricsClient creates a lyrics lookup client.
func NewLyricsClient(api, pages *outbound.Client) *LyricsClient {
	return &LyricsClient{api: api, pages: pages}
}

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				Title         string `json:"title"`
				URL           string `json:"url"`
				PrimaryArtist struct {
					Name string `json:"name"`
				} `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

// Search looks q up on Genius, takes the first match, and fetches its lyrics.
func (c *LyricsClient) Search(ctx context.Context, q string) (*Song, error) {
	var search geniusSearchResponse
	if err := c.api.GetJSON(ctx, "/search?q="+url.QueryEscape(q), &search); err != nil {
		return nil, fmt.Errorf("lyrics search failed: %w", err)
	}
	if len(search.Response.Hits) == 0 {
		return nil, fmt.Errorf("no song found for %q", q)
	}

	hit := search.Response.Hits[0].Result
	song := &Song{
		Title:  hit.Title,
		Artist: hit.PrimaryArtist.Name,
		URL:    hit.URL,
	}

	page, err := c.pages.Get(ctx, hit.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch song page: %w", err)
	}

	lyrics := extractLyrics(string(page))
	if lyrics == "" {
		return nil, fmt.Errorf("no lyrics found for %q", q)
	}
	song.Lyrics = lyrics
	return song, nil
}

var (
	lyricsContainerRe = regexp.MustCompile(`(?s)<div[^>]*data-lyrics-container="true"[^>]*>(.*?)</div>`)
	lineBreakRe       = regexp.MustCompile(`<br\s*/?>`)
	tagRe             = regexp.MustCompile(`<[^>]*>`)
)

// extractLyrics pulls the lyric text out of a Genius song page. Lyric blocks
// are marked with data-lyrics-container; everything else is markup.
func extractLyrics(page string) string {
	matches := lyricsContainerRe.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		block := lineBreakRe.ReplaceAllString(m[1], "\n")
		block = tagRe.ReplaceAllString(block, "")
		block = html.UnescapeString(block)
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n")
}

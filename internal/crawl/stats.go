package crawl

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hazyhaar/horum/internal/clean"
	"github.com/hazyhaar/horum/internal/store"
)

// stopwords excluded from trending-keyword counting.
var stopwords = map[string]bool{
	"the": true, "a": true, "to": true, "and": true, "is": true,
	"in": true, "it": true, "of": true, "for": true, "on": true,
	"with": true, "this": true, "that": true, "are": true, "be": true,
	"an": true, "at": true, "as": true,
}

var wordRe = regexp.MustCompile(`\w+`)

// computeBoardStats derives a board snapshot from the catalog payload the
// crawler already holds, so stats cost no extra upstream requests.
func computeBoardStats(board string, threads []CatalogThread) *store.BoardStats {
	if len(threads) == 0 {
		return nil
	}

	stats := &store.BoardStats{Board: board, Threads: len(threads)}
	wordCounts := make(map[string]int)
	popularity := make([]store.TopThread, 0, len(threads))

	for _, t := range threads {
		stats.Replies += t.Replies
		stats.Images += t.Images

		subject := t.Sub
		if subject == "" {
			subject = t.Com
		}
		subject = clean.Text(subject)

		popularity = append(popularity, store.TopThread{
			ThreadID: t.No,
			Replies:  t.Replies,
			Subject:  clean.Truncate(subject, 50),
		})

		for _, w := range wordRe.FindAllString(strings.ToLower(subject), -1) {
			if len(w) > 3 && !stopwords[w] {
				wordCounts[w]++
			}
		}
	}

	stats.AvgReplies = float64(stats.Replies) / float64(stats.Threads)
	if total := stats.Replies + stats.Threads; total > 0 {
		stats.ImageDensity = float64(stats.Images) / float64(total) * 100
	}

	sort.Slice(popularity, func(i, j int) bool { return popularity[i].Replies > popularity[j].Replies })
	if len(popularity) > 5 {
		popularity = popularity[:5]
	}
	stats.TopThreads = popularity

	type wc struct {
		word  string
		count int
	}
	ranked := make([]wc, 0, len(wordCounts))
	for w, n := range wordCounts {
		ranked = append(ranked, wc{w, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	for i := 0; i < len(ranked) && i < 10; i++ {
		stats.TrendingKeywords = append(stats.TrendingKeywords, ranked[i].word)
	}

	return stats
}

package crawl

// Upstream wire types. The catalog endpoint returns paginated thread
// listings with live reply counts; the thread endpoint returns every post,
// the original post first.

type catalogPage struct {
	Threads []CatalogThread `json:"threads"`
}

// CatalogThread is one thread as listed in a board catalog.
type CatalogThread struct {
	No           int64  `json:"no"`
	Replies      int    `json:"replies"`
	Images       int    `json:"images"`
	Sub          string `json:"sub"`
	Com          string `json:"com"`
	LastModified int64  `json:"last_modified"`
}

type threadPayload struct {
	Posts []upstreamPost `json:"posts"`
}

type upstreamPost struct {
	No           int64  `json:"no"`
	Time         int64  `json:"time"`
	Com          string `json:"com"`
	Sub          string `json:"sub"`
	Images       int    `json:"images"`
	LastModified int64  `json:"last_modified"`
}

type boardListing struct {
	Boards []struct {
		Board string `json:"board"`
	} `json:"boards"`
}

package store

// Thread is one archived thread. last_modified, reply_count and image_count
// track the newest upstream sighting; the rest is fixed at first insert.
type Thread struct {
	ThreadID     int64  `json:"thread_id"`
	Board        string `json:"board"`
	Subject      string `json:"subject,omitempty"`
	LastModified int64  `json:"last_modified"`
	ReplyCount   int    `json:"reply_count"`
	ImageCount   int    `json:"image_count"`
}

// Post is one archived post. Immutable once stored.
type Post struct {
	PostID    int64  `json:"post_id"`
	ThreadID  int64  `json:"thread_id"`
	Board     string `json:"board"`
	Timestamp int64  `json:"timestamp"`
	Comment   string `json:"comment"`
	IsOp      bool   `json:"is_op"`
}

// ThreadPage is a thread plus its posts in ascending post-id order.
type ThreadPage struct {
	Thread
	Posts []Post `json:"posts"`
}

// SearchResult is one full-text match hydrated with thread metadata.
type SearchResult struct {
	Board     string `json:"board"`
	ThreadID  int64  `json:"thread_id"`
	PostID    int64  `json:"post_id"`
	Comment   string `json:"comment"`
	Timestamp int64  `json:"timestamp"`
	Subject   string `json:"subject,omitempty"`
}

// GlobalStats holds archive-wide counters.
type GlobalStats struct {
	Posts  int `json:"posts"`
	Boards int `json:"boards"`
}

// TrackedKeyword is one (user, keyword) assignment. AddedAt is the
// permanent watermark: only posts newer than it count as matches.
type TrackedKeyword struct {
	UserID  string `json:"user_id"`
	Keyword string `json:"keyword"`
	Label   string `json:"label,omitempty"`
	AddedAt int64  `json:"added_at"`
}

// KeywordStats summarises one assignment for a user's tracking view.
type KeywordStats struct {
	Keyword     string `json:"keyword"`
	Label       string `json:"label,omitempty"`
	UnreadCount int    `json:"unread_count"`
	LastMatchAt int64  `json:"last_match_at,omitempty"`
}

// KeywordMatch is one post matched by the sweep for one assignment.
type KeywordMatch struct {
	UserID   string `json:"user_id"`
	PostID   int64  `json:"post_id"`
	Keyword  string `json:"keyword"`
	Board    string `json:"board"`
	ThreadID int64  `json:"thread_id"`
	Comment  string `json:"comment"`
	FoundAt  int64  `json:"found_at"`
	IsRead   bool   `json:"is_read"`
}

// ThreadDocument is the ingest shape consumed by the analysis collaborator:
// one thread with all of its posts, comments cleaned for readability.
type ThreadDocument struct {
	Board        string         `json:"board"`
	ThreadID     int64          `json:"thread_id"`
	Subject      string         `json:"subject,omitempty"`
	LastModified int64          `json:"last_modified"`
	Posts        []DocumentPost `json:"posts"`
}

// DocumentPost is one post inside a ThreadDocument.
type DocumentPost struct {
	PostID    int64  `json:"post_id"`
	Timestamp int64  `json:"timestamp"`
	Comment   string `json:"comment"`
	IsOp      bool   `json:"is_op"`
}

// TopThread is one entry in a board's popularity ranking.
type TopThread struct {
	ThreadID int64  `json:"thread_id"`
	Replies  int    `json:"replies"`
	Subject  string `json:"subject"`
}

// BoardStats is a snapshot of a board's live catalog.
type BoardStats struct {
	Board            string      `json:"board"`
	Threads          int         `json:"threads"`
	Replies          int         `json:"replies"`
	Images           int         `json:"images"`
	AvgReplies       float64     `json:"avg_replies"`
	ImageDensity     float64     `json:"image_density"`
	TopThreads       []TopThread `json:"top_threads"`
	TrendingKeywords []string    `json:"trending_keywords"`
}

// CrawlLogEntry records the outcome of one board pass.
type CrawlLogEntry struct {
	ID             string `json:"id"`
	Board          string `json:"board"`
	Status         string `json:"status"`
	NewThreads     int    `json:"new_threads"`
	UpdatedThreads int    `json:"updated_threads"`
	SkippedThreads int    `json:"skipped_threads"`
	Error          string `json:"error,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	CrawledAt      int64  `json:"crawled_at"`
}

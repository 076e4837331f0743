package domain

// Category is the domain tag assigned to a discovery during transform.
type Category string

const (
	CategoryLaunch    Category = "LAUNCH"
	CategorySafety    Category = "SAFETY"
	CategoryWhale     Category = "WHALE"
	CategorySentiment Category = "SENTIMENT"
	CategoryMarket    Category = "MARKET"
	CategoryNews      Category = "NEWS"
)

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is a valid value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryLaunch, CategorySafety, CategoryWhale, CategorySentiment, CategoryMarket, CategoryNews:
		return true
	}
	return false
}

// RelevanceFactors are boolean flags computed deterministically during transform.
// They feed the classifier; they never affect the fingerprint.
type RelevanceFactors struct {
	MentionsSolana   bool
	MentionsMemecoin bool
	Recent           bool // published within the source's recency window
	HighEngagement   bool // source-specific engagement threshold exceeded
	TrustedSource    bool // source is on the curated allow-list
}

// Discovery is the normalized unit of information produced by a source.
// Corresponds to the discoveries table in PostgreSQL.
type Discovery struct {
	Fingerprint  string             // PRIMARY KEY, deterministic hash of (source, source_id)
	Source       string             // registry id of the producing source
	SourceID     string             // natural key within the source
	SourceURL    string             //
	Title        string             //
	Description  string             // optional
	Author       string             // optional
	PublishedAt  int64              // Unix ms, 0 when the source does not publish timestamps
	Metrics      map[string]float64 // likes, views, points - semantics are source-dependent
	Category     Category           //
	Tags         []string           //
	Relevance    RelevanceFactors   //
	RawMetadata  map[string]string  // free-form, consumed by scoring/classification
	DiscoveredAt int64              // Unix ms, set by the aggregator when first observed
}

// Mint returns the token mint this discovery concerns, if any.
// A discovery with a mint is routed to the scoring engine instead of the classifier.
func (d *Discovery) Mint() (string, bool) {
	m, ok := d.RawMetadata["mint"]
	return m, ok && m != ""
}

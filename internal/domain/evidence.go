package domain

// SafetyReport is the safety-scanner sub-record of an evidence bundle.
type SafetyReport struct {
	Score           float64 // 0-100, already normalized by the scanner
	Rugged          bool    // confirmed hard-safety violation
	MintAuthority   bool    // mint authority still enabled
	FreezeAuthority bool    // freeze authority still enabled
	LPLockedPct     float64 // percentage of LP tokens locked or burned
	TopHolderPct    float64 // largest single holder percentage
	Risks           []string
}

// LaunchInfo is the launch-platform sub-record of an evidence bundle.
type LaunchInfo struct {
	Name          string
	Symbol        string
	USDMarketCap  float64
	LiquidityUSD  float64
	CurveProgress float64 // bonding curve progress, 0-100
	Graduated     bool    // migrated to an AMM pool
	CreatedAt     int64   // Unix ms
	Twitter       string
	Telegram      string
	Website       string
}

// SocialChannels counts the verifiable community channels.
func (l *LaunchInfo) SocialChannels() int {
	n := 0
	if l.Twitter != "" {
		n++
	}
	if l.Telegram != "" {
		n++
	}
	if l.Website != "" {
		n++
	}
	return n
}

// OnChainStats is the on-chain analytics sub-record of an evidence bundle.
type OnChainStats struct {
	HolderCount  int
	TopHolderPct float64 // largest holder percentage of supply
	Top10Pct     float64 // top 10 holders combined percentage
	WhaleCount   int     // holders above 5% of supply
}

// MarketQuote is the market-data sub-record of an evidence bundle.
type MarketQuote struct {
	Price     float64
	Change1h  float64 // percent
	Change24h float64 // percent
	MarketCap float64
	Volume24h float64
}

// Evidence bundles the optional per-category data about one scoreable token.
// Each sub-record is independently absent; scoring degrades gracefully.
type Evidence struct {
	Safety  *SafetyReport
	Launch  *LaunchInfo
	OnChain *OnChainStats
	Market  *MarketQuote
}

// Completeness returns the fraction of the four evidence categories present.
func (e Evidence) Completeness() float64 {
	n := 0
	if e.Safety != nil {
		n++
	}
	if e.Launch != nil {
		n++
	}
	if e.OnChain != nil {
		n++
	}
	if e.Market != nil {
		n++
	}
	return float64(n) / 4.0
}

package config

import "time"

const (
	// Outgoing message limits
	MaxMessageWords = 1200

	// Streaming reveal: the displayed text grows by 1/RevealSteps of the total per tick
	RevealSteps       = 80
	DefaultRevealTick = 25 * time.Millisecond

	// Planning service timeouts
	RequestTimeout  = 120 * time.Second
	EnhanceTimeout  = 180 * time.Second
	FollowUpTimeout = 30 * time.Second
	ProbeTimeout    = 5 * time.Second

	// Diagnostic bodies are cut to this many characters
	ProbeBodyLimit = 200

	// Conversation history
	SessionListLimit         = 20
	SessionsPerPage          = 5
	SessionListCacheDuration = 1 * time.Minute

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Reveal edits per chat (Telegram allows roughly one edit per second per chat)
	EditInterval = 1 * time.Second
	EditBurst    = 2

	// Rate limits (per minute)
	RateLimitPerMinute = 8

	// Idle engines are closed after this long
	EngineIdleTimeout = 30 * time.Minute
	EngineSweep       = 5 * time.Minute

	// Stale rate-limit rows are removed on the same sweep
	RateLimitRetention = 10 * time.Minute

	// Startup waits for the database: attempt n sleeps n*DBConnectBackoff
	DBConnectAttempts = 5
	DBConnectBackoff  = 1 * time.Second
)

// TrendingQueries are offered on /start.
var TrendingQueries = []string{
	"5-day adventure in Leh Ladakh",
	"Romantic week in Goa beaches",
	"Cultural tour of Rajasthan",
	"Spiritual journey to Varanasi",
	"Beach paradise in Andaman",
}

// DefaultFollowUps seed a fresh session before the service suggests anything.
var DefaultFollowUps = []string{
	"Plan a weekend trip",
	"Find flights to Spain",
	"Suggest hotels in Dubai",
	"Show transport options in Dubai",
}

// PremiumOperators raise the fallback transit price.
var PremiumOperators = []string{"VRL Travels", "Mannat Holidays"}

// RouteVariation is added to the fallback price of the n-th transit route.
var RouteVariation = []int64{0, 50, -30, 80, -20, 40}

package rooms

// Word pools for generated pair room ids.

var nightThings = []string{
	"moon", "star", "comet", "nebula", "aurora", "eclipse", "meteor", "galaxy", "orbit", "quasar",
	"lantern", "candle", "ember", "firefly", "glow", "shadow", "dusk", "dawn", "twilight", "midnight",
	"owl", "bat", "moth", "fox", "wolf", "cricket", "nightjar", "heron", "lynx", "raven",
}

var moods = []string{
	"quiet", "sleepy", "dreamy", "gentle", "silver", "velvet", "misty", "hushed", "soft", "lunar",
	"drifting", "wandering", "starlit", "restless", "calm", "hazy", "glowing", "distant", "secret", "mellow",
	"cozy", "blue", "violet", "amber", "frosted", "slow", "tender", "still", "faint", "warm",
}

var places = []string{
	"harbor", "meadow", "rooftop", "garden", "library", "balcony", "bridge", "pier", "attic", "orchard",
	"lighthouse", "station", "cafe", "observatory", "grove", "valley", "shore", "canyon", "island", "tower",
}

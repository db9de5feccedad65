package core

import (
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// GetSeed receives a seed value for random number generation from the MFF_SEED environment variable.
func GetSeed() int64 {
	seedStr := os.Getenv("MFF_SEED")
	if seedStr != "" {
		if seed, err := strconv.ParseInt(seedStr, 10, 64); err == nil {
			log.Info().Msgf("Using seed from MFF_SEED value: %d", seed)
			return seed
		}
		log.Warn().Msgf("Failed to parse MFF_SEED value: %s", seedStr)
	}

	seed := time.Now().UnixNano()
	log.Info().Msgf("Using current time as seed: %d", seed)
	return seed
}

// NewRand returns a random source seeded with seed, or with GetSeed() when seed is zero.
// Every strategy run owns one; nothing in the module draws from the global source.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = GetSeed()
	}
	return rand.New(rand.NewSource(seed))
}

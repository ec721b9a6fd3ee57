package helper

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxRequestIDLen = 128

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// RequestID keeps a caller supplied id of sane length, otherwise it mints a
// new one.
func RequestID(supplied string) string {
	if supplied != "" && len(supplied) <= maxRequestIDLen {
		return supplied
	}
	id, err := GenerateUUID()
	if err != nil {
		log.Warn().Err(err).Msg("Error generating request id")
		return "unknown"
	}
	return id
}

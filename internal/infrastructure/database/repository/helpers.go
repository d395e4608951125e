package repository

import (
	"encoding/json"
	"fmt"

	"scamguard/internal/domain/models"
)

// storeErr marks a database failure as a store outage for callers that use
// errors.Is(err, models.ErrStoreUnavailable)
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStoreUnavailable, op, err)
}

// JSON conversion helpers

func jsonOrNull(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func bytesToJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

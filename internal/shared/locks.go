package shared

import "fmt"

// StocktakeLockKey builds redis keys guarding adjustment runs of a count session.
func StocktakeLockKey(sessionID string) string {
	return fmt.Sprintf("stocktake:session:%s:lock", sessionID)
}

package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/wonny/wielermanager/internal/contracts"
)

// Keyed is implemented by planners whose output depends on settings outside
// the request, such as the solver backend or incumbent acceptance
type Keyed interface {
	CacheKey() string
}

// Fingerprint identifies a request for one strategy under planner settings.
// Map keys are marshalled in sorted order, so equal requests hash equally.
func Fingerprint(strategy contracts.Strategy, settings string, req *contracts.PlanRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(strategy))
	h.Write([]byte{'\n'})
	h.Write([]byte(settings))
	h.Write([]byte{'\n'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func settingsOf(planner contracts.Planner) string {
	if k, ok := planner.(Keyed); ok {
		return k.CacheKey()
	}
	return ""
}

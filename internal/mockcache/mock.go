package mockcache

import "time"

// GenerateMock builds a synthetic placeholder payload for an operation type
// when nothing usable is cached. Payloads are marked so consumers can tell
// them from real data.
func GenerateMock(operationType string) map[string]interface{} {
	base := map[string]interface{}{
		"mock":         true,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}

	switch operationType {
	case "fetchMetrics":
		base["metrics"] = []map[string]interface{}{
			{"name": "requests_total", "value": 0},
			{"name": "error_rate", "value": 0.0},
			{"name": "latency_p95_ms", "value": 0},
		}
	case "fetchReport":
		base["report"] = map[string]interface{}{
			"title":   "Report unavailable",
			"summary": "Live report data could not be fetched. Showing placeholder.",
			"rows":    []interface{}{},
		}
	case "fetchDashboard":
		base["widgets"] = []interface{}{}
		base["message"] = "Dashboard data is temporarily unavailable."
	default:
		base["data"] = nil
		base["message"] = "Data is temporarily unavailable."
	}

	return base
}

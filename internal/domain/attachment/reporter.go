package attachment

// CategoryUsage is the per-category slice of a usage report.
type CategoryUsage struct {
	Count      int64 `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}

// UsageStats aggregates registry entries for observability. An empty
// registry yields all-zero stats, never an error.
type UsageStats struct {
	PerCategory map[Category]CategoryUsage `json:"per_category"`
	TotalCount  int64                      `json:"total_count"`
	TotalBytes  int64                      `json:"total_bytes"`
}

// NewUsageStats returns stats with every known category zeroed, so
// reports always carry the full category set.
func NewUsageStats() UsageStats {
	perCategory := make(map[Category]CategoryUsage, len(Categories()))
	for _, category := range Categories() {
		perCategory[category] = CategoryUsage{}
	}
	return UsageStats{PerCategory: perCategory}
}

// Add accumulates one attachment into the stats.
func (s *UsageStats) Add(category Category, bytes int64) {
	usage := s.PerCategory[category]
	usage.Count++
	usage.TotalBytes += bytes
	s.PerCategory[category] = usage
	s.TotalCount++
	s.TotalBytes += bytes
}

package models

// CardStats represents aggregate card usage statistics
type CardStats struct {
	Total            int64           `json:"total"`
	Used             int64           `json:"used"`
	Available        int64           `json:"available"`
	UsageRatePercent float64         `json:"usageRatePercent"`
	ByPlatform       []PlatformCount `json:"byPlatform"`
	ByRecentDate     []DateCount     `json:"byRecentDate"`
}

// PlatformCount is the number of consumed cards carrying a platform label.
// An empty Platform groups cards consumed without a label.
type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// DateCount is the number of cards consumed on a calendar day
type DateCount struct {
	Date  string `json:"date"` // Format: YYYY-MM-DD
	Count int64  `json:"count"`
}

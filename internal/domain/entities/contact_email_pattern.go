package entities

import (
	"sort"
	"time"
)

// MaxLatencySamples bounds the rolling window of reply latencies
const MaxLatencySamples = 50

// ResponseDeviation compares the latest reply to the contact's usual speed
type ResponseDeviation string

const (
	DeviationNormal     ResponseDeviation = "normal"
	DeviationSlower     ResponseDeviation = "slower"
	DeviationMuchSlower ResponseDeviation = "much_slower"
	DeviationFaster     ResponseDeviation = "faster"
)

// ContactEmailPattern is the response-velocity profile of one contact
type ContactEmailPattern struct {
	ContactEmail      string            `json:"contact_email" gorm:"type:varchar(255);primary_key"`
	ThreadCount       int               `json:"thread_count" gorm:"not null;default:0"`
	ResponseCount     int               `json:"response_count" gorm:"not null;default:0"`
	AvgLatencySeconds int64             `json:"avg_latency_seconds"`
	MedianLatency     int64             `json:"median_latency_seconds" gorm:"column:median_latency_seconds"`
	FastestLatency    int64             `json:"fastest_latency_seconds" gorm:"column:fastest_latency_seconds"`
	SlowestLatency    int64             `json:"slowest_latency_seconds" gorm:"column:slowest_latency_seconds"`
	LatencySamples    []int64           `json:"latency_samples" gorm:"type:jsonb;serializer:json"`
	TypicalHours      [24]int           `json:"typical_hours" gorm:"type:jsonb;serializer:json"`
	TypicalDays       [7]int            `json:"typical_days" gorm:"type:jsonb;serializer:json"`
	Deviation         ResponseDeviation `json:"deviation" gorm:"type:varchar(20);default:'normal'"`
	LastResponseAt    *time.Time        `json:"last_response_at,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ContactEmailPattern) TableName() string {
	return "contact_email_patterns"
}

// RecordReply adds one reply latency observed at receivedAt (in the contact's local zone)
// and recomputes the aggregates
func (p *ContactEmailPattern) RecordReply(latency time.Duration, receivedAt time.Time) {
	secs := int64(latency / time.Second)
	if secs < 0 {
		secs = 0
	}
	p.LatencySamples = append(p.LatencySamples, secs)
	if len(p.LatencySamples) > MaxLatencySamples {
		p.LatencySamples = p.LatencySamples[len(p.LatencySamples)-MaxLatencySamples:]
	}
	p.ResponseCount++
	p.TypicalHours[receivedAt.Hour()]++
	p.TypicalDays[int(receivedAt.Weekday())]++
	t := receivedAt.UTC()
	p.LastResponseAt = &t

	// deviation compares against the profile as it stood before this reply
	p.Deviation = DeviationNormal
	if p.AvgLatencySeconds > 0 && p.ResponseCount > 3 {
		ratio := float64(secs) / float64(p.AvgLatencySeconds)
		switch {
		case ratio >= 3:
			p.Deviation = DeviationMuchSlower
		case ratio >= 1.5:
			p.Deviation = DeviationSlower
		case ratio <= 0.5:
			p.Deviation = DeviationFaster
		}
	}

	sorted := append([]int64(nil), p.LatencySamples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sum int64
	for _, s := range sorted {
		sum += s
	}
	p.AvgLatencySeconds = sum / int64(len(sorted))
	p.FastestLatency = sorted[0]
	p.SlowestLatency = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		p.MedianLatency = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		p.MedianLatency = sorted[mid]
	}
}

// AvgLatency returns the average reply latency as a duration
func (p *ContactEmailPattern) AvgLatency() time.Duration {
	return time.Duration(p.AvgLatencySeconds) * time.Second
}

package model

import (
	"fmt"
	"time"
)

// ScanSummary tallies the outcome of one ingestion pass.
type ScanSummary struct {
	StartedAt         time.Time
	FinishedAt        time.Time
	MalformedByIssuer map[string]int
	ID                string
	Source            Source
	Accepted          int
	Duplicates        int
	UnknownIssuer     int
	Malformed         int
	Ambiguous         int
	ResolverFallbacks int
}

// NewScanSummary starts an empty summary for source.
func NewScanSummary(id string, source Source, startedAt time.Time) *ScanSummary {
	return &ScanSummary{
		ID:                id,
		Source:            source,
		StartedAt:         startedAt,
		MalformedByIssuer: make(map[string]int),
	}
}

// Seen returns how many inputs the scan looked at.
func (s *ScanSummary) Seen() int {
	return s.Accepted + s.Duplicates + s.UnknownIssuer + s.Malformed + s.Ambiguous
}

// Merge folds other into s.
func (s *ScanSummary) Merge(other *ScanSummary) {
	if other == nil {
		return
	}
	s.Accepted += other.Accepted
	s.Duplicates += other.Duplicates
	s.UnknownIssuer += other.UnknownIssuer
	s.Malformed += other.Malformed
	s.Ambiguous += other.Ambiguous
	s.ResolverFallbacks += other.ResolverFallbacks
	for issuer, n := range other.MalformedByIssuer {
		s.MalformedByIssuer[issuer] += n
	}
}

func (s *ScanSummary) String() string {
	return fmt.Sprintf("accepted=%d duplicates=%d unknown_issuer=%d malformed=%d ambiguous=%d",
		s.Accepted, s.Duplicates, s.UnknownIssuer, s.Malformed, s.Ambiguous)
}

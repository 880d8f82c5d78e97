// Package merge combines the per-source transaction streams into one ledger view.
package merge

import (
	"slices"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Streams holds each source's entries in insertion order. A nil stream is a
// source that is empty or still loading.
type Streams struct {
	Manual []model.Transaction
	OCR    []model.Transaction
	SMS    []model.Transaction
	Linked []model.Transaction
}

// For returns the stream of one source.
func (s Streams) For(source model.Source) []model.Transaction {
	switch source {
	case model.SourceManual:
		return s.Manual
	case model.SourceOCR:
		return s.OCR
	case model.SourceSMS:
		return s.SMS
	case model.SourceLinked:
		return s.Linked
	}
	return nil
}

// With returns a copy of s whose stream for source is replaced by txns.
func (s Streams) With(source model.Source, txns []model.Transaction) Streams {
	switch source {
	case model.SourceManual:
		s.Manual = txns
	case model.SourceOCR:
		s.OCR = txns
	case model.SourceSMS:
		s.SMS = txns
	case model.SourceLinked:
		s.Linked = txns
	}
	return s
}

// Len returns the number of entries across all streams.
func (s Streams) Len() int {
	return len(s.Manual) + len(s.OCR) + len(s.SMS) + len(s.Linked)
}

// Split groups entries by source, keeping their relative order.
func Split(txns []model.Transaction) Streams {
	var s Streams
	for _, t := range txns {
		s = s.With(t.Source, append(s.For(t.Source), t))
	}
	return s
}

// Merge returns every entry ordered by date descending. Ties keep insertion
// order, with streams taken in the order manual, ocr, sms, linked. An id seen
// twice is kept only at its first position. The output depends only on the
// input.
func Merge(s Streams) []model.Transaction {
	out := make([]model.Transaction, 0, s.Len())
	seen := make(map[string]struct{}, s.Len())
	for _, source := range model.Sources {
		for _, t := range s.For(source) {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	return out
}

// MergeSource is the canonical merge restricted to one source.
func MergeSource(s Streams, source model.Source) []model.Transaction {
	return Filter(Merge(s), source)
}

// Filter keeps the entries tagged with source, preserving order.
func Filter(txns []model.Transaction, source model.Source) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Source == source {
			out = append(out, t)
		}
	}
	return out
}

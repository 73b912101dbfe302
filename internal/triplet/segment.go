package triplet

import "log/slog"

// Batch is the triplet list extracted from one passage.
type Batch struct {
	PassageID int
	Triplets  []Triplet
}

// Segment groups passage batches into segments of at most maxLength
// triplets, keeping passages whole and in order. A passage larger than
// maxLength becomes a segment of its own and is reported through logger.
func Segment(batches []Batch, maxLength int, logger *slog.Logger) [][]Triplet {
	var (
		segments [][]Triplet
		open     []Triplet
	)
	for _, b := range batches {
		if len(b.Triplets) > maxLength && logger != nil {
			logger.Warn("passage exceeds segment length",
				"passage_id", b.PassageID, "triplets", len(b.Triplets), "max_length", maxLength)
		}
		if len(open)+len(b.Triplets) <= maxLength {
			open = append(open, b.Triplets...)
			continue
		}
		if len(open) > 0 {
			segments = append(segments, open)
		}
		open = append([]Triplet(nil), b.Triplets...)
	}
	if len(open) > 0 {
		segments = append(segments, open)
	}
	return segments
}

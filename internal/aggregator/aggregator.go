package aggregator

import (
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
)

type Summary struct {
	Total            int            `json:"total"`
	Succeeded        int            `json:"succeeded"`
	Failed           int            `json:"failed"`
	ByState          map[string]int `json:"by_state"`
	FailuresByKind   map[string]int `json:"failures_by_kind"`
	EmptyTranscripts int            `json:"empty_transcripts"`
	AvgDurationMs    float64        `json:"avg_duration_ms"`
}

// FailureRate is Failed over Total, zero for an empty batch.
func (s Summary) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Total)
}

func Summarize(reports []processor.Report) Summary {
	s := Summary{
		ByState:        map[string]int{},
		FailuresByKind: map[string]int{},
	}
	var totalMs int64
	for _, r := range reports {
		s.Total++
		s.ByState[string(r.State)]++
		totalMs += r.DurationMs
		if r.Failed() {
			s.Failed++
			s.FailuresByKind[r.ErrorKind]++
		} else {
			s.Succeeded++
		}
		for _, w := range r.Warnings {
			if w.Code == pipeline.WarnEmptyTranscript {
				s.EmptyTranscripts++
				break
			}
		}
	}
	if s.Total > 0 {
		s.AvgDurationMs = float64(totalMs) / float64(s.Total)
	}
	return s
}

package actionable

import (
	"fmt"

	"zanzara-go/internal/aggregator"
	"zanzara-go/internal/apierr"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
	"zanzara-go/internal/types"
)

// Generate explains a single report. Successful reports only get a hint when
// something deserves attention.
func Generate(r processor.Report) *types.Hint {
	switch r.ErrorKind {
	case processor.KindPayloadTooLarge:
		return &types.Hint{
			Insight: "The file is over the 25 MB transcription limit",
			Action:  "Compress the audio or upload a shorter excerpt",
		}
	case processor.KindUnsupportedFormat:
		return &types.Hint{
			Insight: "The file format is not accepted by the transcription API",
			Action:  "Convert the file to mp3, m4a, wav or another supported format",
		}
	case processor.KindInvalidURL, processor.KindFetchFailed:
		return &types.Hint{
			Insight: "The media could not be downloaded",
			Action:  "Check that the URL is reachable and points to an audio or video file",
		}
	case processor.KindMissingTemplate:
		return &types.Hint{
			Insight: "The prompt template is missing, so no analysis was produced",
			Action:  "Add the template file (prompt.txt) next to the service and retry",
			Impact:  "The transcript above is still valid",
		}
	case processor.KindTemplateUnreadable:
		return &types.Hint{
			Insight: "The prompt template exists but could not be read",
			Action:  "Check the file permissions of the template and retry",
			Impact:  "The transcript above is still valid",
		}
	case processor.KindCredentialMissing:
		return &types.Hint{
			Insight: "No API key is configured",
			Action:  "Set OPENAI_API_KEY or enter the key when prompted",
		}
	case processor.KindCanceled:
		return &types.Hint{
			Insight: "The request was canceled before it completed",
			Action:  "Retry; long files may need a larger timeout",
		}
	case string(apierr.KindRateLimit):
		return &types.Hint{
			Insight: fmt.Sprintf("The %s API is rate limiting requests", stageName(r.ErrorStage)),
			Action:  "Wait a minute and try again",
		}
	case string(apierr.KindConnection):
		return &types.Hint{
			Insight: fmt.Sprintf("The %s API could not be reached", stageName(r.ErrorStage)),
			Action:  "Check the network connection and the configured base URL",
		}
	case string(apierr.KindStatus):
		return &types.Hint{
			Insight: fmt.Sprintf("The %s API rejected the request", stageName(r.ErrorStage)),
			Action:  "Check the API key, the model name and the error message",
		}
	case string(apierr.KindEmptyResponse):
		return &types.Hint{
			Insight: "The model returned an empty answer",
			Action:  "Retry, or add instructions to steer the analysis",
		}
	case "":
	default:
		return &types.Hint{
			Insight: "The invocation failed unexpectedly",
			Action:  "Retry, and check the service logs with the invocation id",
		}
	}

	for _, w := range r.Warnings {
		if w.Code == pipeline.WarnEmptyTranscript {
			return &types.Hint{
				Insight: "No speech was recognized in the file",
				Action:  "Check that the file has audible speech",
			}
		}
	}
	if r.Mode == pipeline.ModeFull && r.ExamplesUsed == 0 {
		return &types.Hint{
			Insight: "The analysis ran without example articles",
			Action:  "Add the example files to improve the output style",
		}
	}
	return nil
}

// Annotate sets the hint on r when it has none.
func Annotate(r *processor.Report) {
	if r.Hint == nil {
		r.Hint = Generate(*r)
	}
}

// ForSummary explains a batch.
func ForSummary(s aggregator.Summary) types.Hint {
	worst, highest := "", 0
	for k, n := range s.FailuresByKind {
		if n > highest || (n == highest && k < worst) {
			worst, highest = k, n
		}
	}
	if s.Total > 0 && s.FailureRate() >= 0.35 && worst != "" {
		return types.Hint{
			Insight: fmt.Sprintf("High failure rate (%.0f%%), mostly %s", s.FailureRate()*100, worst),
			Action:  Generate(processor.Report{ErrorKind: worst, Error: worst}).Action,
			Impact:  fmt.Sprintf("%d of %d files have no result", s.Failed, s.Total),
		}
	}
	if s.EmptyTranscripts > 0 {
		return types.Hint{
			Insight: fmt.Sprintf("%d files produced an empty transcript", s.EmptyTranscripts),
			Action:  "Review those files for silence or unsupported languages",
			Impact:  "Their analyses are not meaningful",
		}
	}
	return types.Hint{
		Insight: "No strong failure pattern detected",
		Action:  "No action needed",
	}
}

func stageName(stage string) string {
	if stage == "" {
		return "vendor"
	}
	return stage
}

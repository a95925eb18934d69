package dataset

import (
	"context"
	"net/http"

	"zanzara-go/internal/actionable"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/media"
	"zanzara-go/internal/processor"
	"zanzara-go/internal/types"
)

type RunOptions struct {
	HTTPClient *http.Client
	Fetch      media.FetchOptions
	Logger     *logger.Logger
	// Progress is called after each record.
	Progress func(i int, r processor.Report)
}

// Run processes records one after another. A failing record does not stop
// the batch; a canceled context does.
func Run(ctx context.Context, runner processor.Runner, records []types.MediaRecord, opts RunOptions) []processor.Report {
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	log = log.With("component", "dataset.batch")

	reports := make([]processor.Report, 0, len(records))
	for i, rec := range records {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("batch canceled")
			break
		}
		recLog := log.With("record", rec.ID).With("source", rec.Source)
		recLog.Info("processing record")

		var rep processor.Report
		blob, err := open(ctx, rec.Source, opts)
		if err != nil {
			rep = processor.Failed(rec.ID, types.FileDetails{Name: rec.Source}, rec.TranscribeOnly, err)
		} else {
			rep = processor.Process(ctx, runner, processor.Job{
				Source:         rec.ID,
				Media:          blob,
				Instructions:   rec.Instructions,
				TranscribeOnly: rec.TranscribeOnly,
			})
		}
		actionable.Annotate(&rep)
		if rep.Failed() {
			recLog.WithField("error_kind", rep.ErrorKind).Warn(rep.Error)
		}
		reports = append(reports, rep)
		if opts.Progress != nil {
			opts.Progress(i, rep)
		}
	}
	return reports
}

func open(ctx context.Context, source string, opts RunOptions) (media.Blob, error) {
	if IsURL(source) {
		return media.Fetch(ctx, opts.HTTPClient, source, opts.Fetch)
	}
	return media.Open(source, opts.Fetch.Limit)
}

package when2meet

//go:generate mockgen -source=loader.go -destination=loader_mock.go -package=when2meet

import (
	"context"
	"fmt"

	appLog "meetblocks/internal/log"
	"meetblocks/internal/model"
)

// Loader turns a source into a dataset.
type Loader interface {
	Load(ctx context.Context, src Source) (model.Dataset, error)
}

// HTTPLoader fetches the raw page and parses its inline script.
type HTTPLoader struct {
	Fetcher *Fetcher
}

func (l *HTTPLoader) Load(ctx context.Context, src Source) (model.Dataset, error) {
	res, err := l.Fetcher.FetchOne(ctx, src)
	if err != nil {
		return model.Dataset{}, err
	}
	return ParsePage(src, res.Body)
}

// LoadAll loads every source in order. The first source defines the slot
// grid, so its failure aborts; later failures are logged and the source is
// left out.
func LoadAll(ctx context.Context, loader Loader, sources []Source) ([]model.Dataset, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("when2meet: no sources")
	}

	out := make([]model.Dataset, 0, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, err := loader.Load(ctx, src)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("when2meet: primary source %s: %w", src.ID, err)
			}
			appLog.Error("source load failed; skipping", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		out = append(out, ds)
	}
	return out, nil
}

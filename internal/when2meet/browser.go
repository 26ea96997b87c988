package when2meet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "meetblocks/internal/log"
	"meetblocks/internal/model"
)

const DefaultBrowserTimeout = 30 * time.Second

// pageGlobalsJS reads the grid straight from the page's script globals
// after it has run, which also works when the inline markup is minified.
const pageGlobalsJS = `(() => {
  const pick = (name) => (typeof window[name] === 'undefined' ? [] : window[name]);
  const el = document.getElementById('NewEventNameDiv');
  return {
    name: el ? el.innerText.split('\n')[0].trim() : '',
    slots: pick('TimeOfSlot'),
    ids: pick('PeopleIDs'),
    names: pick('PeopleNames'),
    avail: pick('AvailableAtSlot'),
  };
})()`

// pageGlobals mirrors the object returned by pageGlobalsJS.
type pageGlobals struct {
	Name  string   `json:"name"`
	Slots []int64  `json:"slots"`
	IDs   []int    `json:"ids"`
	Names []string `json:"names"`
	Avail [][]int  `json:"avail"`
}

// BrowserLoader renders event pages in headless Chromium via chromedp and
// reads the grid from the page's JavaScript state.
type BrowserLoader struct {
	// Timeout bounds one page load. Zero selects DefaultBrowserTimeout.
	Timeout time.Duration
}

// Load navigates to src.URL, waits for the availability grid and extracts
// a dataset from it.
func (l *BrowserLoader) Load(parentCtx context.Context, src Source) (model.Dataset, error) {
	if src.URL == "" {
		return model.Dataset{}, fmt.Errorf("when2meet: source URL is empty")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	appLog.Info("browser load start", "id", src.ID, "url", redactURL(src.URL))

	var g pageGlobals
	tasks := chromedp.Tasks{
		chromedp.Navigate(src.URL),
		chromedp.WaitReady(`#GroupGrid`, chromedp.ByQuery),
		chromedp.Evaluate(pageGlobalsJS, &g),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return model.Dataset{}, fmt.Errorf("when2meet: chromedp run failed for %s: %w", src.ID, err)
	}

	ds, err := datasetFromGlobals(src, g)
	if err != nil {
		return model.Dataset{}, err
	}
	appLog.Info("browser load completed", "id", src.ID, "event", ds.Name, "slots", len(ds.Slots), "people", len(ds.People))
	return ds, nil
}

// datasetFromGlobals converts the page's parallel arrays into a Dataset.
// Slot indexes are array positions, as on the page itself.
func datasetFromGlobals(src Source, g pageGlobals) (model.Dataset, error) {
	if len(g.Slots) == 0 {
		return model.Dataset{}, fmt.Errorf("when2meet: %s: page has no TimeOfSlot entries", src.ID)
	}

	ds := model.Dataset{
		SourceID:     src.ID,
		Name:         strings.TrimSpace(g.Name),
		Slots:        make([]model.SlotTime, 0, len(g.Slots)),
		People:       make(map[int]string, len(g.IDs)),
		Availability: make(map[int][]int),
	}
	for i, begin := range g.Slots {
		ds.Slots = append(ds.Slots, model.SlotTime{Index: i, Begin: begin})
	}
	for i, id := range g.IDs {
		if i >= len(g.Names) {
			break
		}
		if name := strings.TrimSpace(g.Names[i]); name != "" {
			ds.People[id] = name
		}
	}
	for idx, ids := range g.Avail {
		if len(ids) > 0 {
			ds.Availability[idx] = append([]int(nil), ids...)
		}
	}
	return ds, nil
}

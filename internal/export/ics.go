package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"meetblocks/internal/model"
)

// rangeNamespace seeds the name-based UIDs of exported ranges so that
// re-exporting the same window yields the same UID.
var rangeNamespace = uuid.MustParse("4f6d0c5e-2a1b-4f0e-9a3c-6b1d2e7f8a90")

// WriteRangesICS writes one VEVENT per range. The summary is the range
// label; the description lists the available people, most constrained
// first.
func WriteRangesICS(w io.Writer, ranges []model.Range, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//meetblocks//meeting windows//EN")

	for _, r := range ranges {
		ev := cal.AddEvent(RangeUID(r))
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(r.Start.UTC())
		ev.SetEndAt(r.End.UTC())
		ev.SetSummary(r.Label())
		ev.SetDescription(fmt.Sprintf("%d available: %s", len(r.People), strings.Join(r.People, ", ")))
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("export: write ics: %w", err)
	}
	return nil
}

// RangeUID derives a stable UID from the range's label and start instant.
func RangeUID(r model.Range) string {
	key := r.Label() + "@" + r.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(rangeNamespace, []byte(key)).String() + "@meetblocks"
}

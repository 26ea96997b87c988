package when2meet

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	appLog "meetblocks/internal/log"
	"meetblocks/internal/model"
)

// The event page embeds its grid as inline script assignments.
var (
	reTimeOfSlot = regexp.MustCompile(`TimeOfSlot\[(\d+)\]\s*=\s*(\d+);`)
	rePerson     = regexp.MustCompile(`PeopleNames\[(\d+)\]\s*=\s*'((?:[^'\\]|\\.)*)';\s*PeopleIDs\[(\d+)\]\s*=\s*(\d+);`)
	reAvailable  = regexp.MustCompile(`AvailableAtSlot\[(\d+)\]\.push\((\d+)\);`)
)

// ParsePage extracts the slot grid, the people and their availability
// from an event page. Malformed entries are skipped; a page without any
// slots is an error.
func ParsePage(src Source, body []byte) (model.Dataset, error) {
	if len(body) == 0 {
		return model.Dataset{}, errors.New("when2meet: empty page body")
	}

	ds := model.Dataset{
		SourceID:     src.ID,
		Name:         EventName(body),
		People:       make(map[int]string),
		Availability: make(map[int][]int),
	}

	seen := make(map[int]bool)
	for _, m := range reTimeOfSlot.FindAllSubmatch(body, -1) {
		idx, err1 := strconv.Atoi(string(m[1]))
		begin, err2 := strconv.ParseInt(string(m[2]), 10, 64)
		if err1 != nil || err2 != nil || seen[idx] {
			continue
		}
		seen[idx] = true
		ds.Slots = append(ds.Slots, model.SlotTime{Index: idx, Begin: begin})
	}
	if len(ds.Slots) == 0 {
		return model.Dataset{}, fmt.Errorf("when2meet: %s: no TimeOfSlot entries found", src.ID)
	}
	sort.Slice(ds.Slots, func(i, j int) bool { return ds.Slots[i].Index < ds.Slots[j].Index })

	for _, m := range rePerson.FindAllSubmatch(body, -1) {
		if string(m[1]) != string(m[3]) {
			continue
		}
		id, err := strconv.Atoi(string(m[4]))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(unescapeJS(string(m[2])))
		if name == "" {
			continue
		}
		ds.People[id] = name
	}

	for _, m := range reAvailable.FindAllSubmatch(body, -1) {
		idx, err1 := strconv.Atoi(string(m[1]))
		id, err2 := strconv.Atoi(string(m[2]))
		if err1 != nil || err2 != nil {
			continue
		}
		ds.Availability[idx] = append(ds.Availability[idx], id)
	}

	appLog.Info("page parse completed",
		"id", src.ID,
		"event", ds.Name,
		"slots", len(ds.Slots),
		"people", len(ds.People),
	)
	return ds, nil
}

// EventName returns the text of the NewEventNameDiv element up to its
// first <br>, or "" when the page has none.
func EventName(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	inside := false
	var b strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if inside && tok.Data == "br" {
				return strings.TrimSpace(b.String())
			}
			if tok.Data == "div" && attr(tok, "id") == "NewEventNameDiv" {
				inside = true
			}
		case html.EndTagToken:
			if inside && z.Token().Data == "div" {
				return strings.TrimSpace(b.String())
			}
		case html.TextToken:
			if inside {
				b.WriteString(z.Token().Data)
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// unescapeJS undoes backslash escapes inside a single-quoted JS literal.
func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

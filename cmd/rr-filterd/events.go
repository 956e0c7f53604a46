package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/haukened/rr-filter/internal/filter/domain"
	"github.com/haukened/rr-filter/internal/filter/services/dispatch"
)

const maxEventLine = 1 << 20

// editPrefix marks a plain-text line as an edited message.
const editPrefix = "edit:"

// eventRecord is the JSON form of an inbound event line.
type eventRecord struct {
	Event   string `json:"event"`
	Content string `json:"content"`
	Author  struct {
		ID    string   `json:"id"`
		Roles []string `json:"roles"`
		Bot   bool     `json:"bot"`
	} `json:"author"`
	Channel struct {
		ID         string `json:"id"`
		CategoryID string `json:"category_id"`
		DM         bool   `json:"dm"`
	} `json:"channel"`
}

// verdictRecord is written for every list that triggered on an event.
type verdictRecord struct {
	Event              string         `json:"event"`
	List               string         `json:"list"`
	Message            string         `json:"message"`
	NotificationDomain string         `json:"notification_domain,omitempty"`
	Actions            map[string]any `json:"actions"`
}

type line struct {
	text string
	err  error
}

// readLines streams the lines of r. The channel is closed at EOF, after the
// first read error has been sent, or once ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan line {
	ch := make(chan line)
	send := func(l line) bool {
		select {
		case ch <- l:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
		for scanner.Scan() {
			if !send(line{text: scanner.Text()}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(line{err: err})
		}
	}()
	return ch
}

// parseEvent turns an input line into a filter context. Lines are either a
// JSON event object, or plain message content optionally prefixed with
// "edit:". Blank lines yield nil.
func parseEvent(text string) (*domain.FilterContext, error) {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return nil, nil
	case strings.HasPrefix(trimmed, "{"):
		return decodeEvent(trimmed)
	case strings.HasPrefix(trimmed, editPrefix):
		env := domain.Envelope{Event: domain.EventMessageEdit}
		return domain.NewFilterContext(env, strings.TrimPrefix(trimmed, editPrefix)), nil
	default:
		return domain.NewFilterContext(domain.Envelope{Event: domain.EventMessage}, text), nil
	}
}

func decodeEvent(text string) (*domain.FilterContext, error) {
	var rec eventRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	kind, err := parseEventKind(rec.Event)
	if err != nil {
		return nil, err
	}
	env := domain.Envelope{
		Event:   kind,
		Author:  domain.Author{ID: rec.Author.ID, Roles: rec.Author.Roles, Bot: rec.Author.Bot},
		Channel: domain.Channel{ID: rec.Channel.ID, CategoryID: rec.Channel.CategoryID, DM: rec.Channel.DM},
	}
	return domain.NewFilterContext(env, rec.Content), nil
}

func parseEventKind(s string) (domain.EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", domain.EventMessage.String():
		return domain.EventMessage, nil
	case domain.EventMessageEdit.String():
		return domain.EventMessageEdit, nil
	default:
		return 0, fmt.Errorf("unsupported event %q", s)
	}
}

func writeVerdict(w io.Writer, fctx *domain.FilterContext, res dispatch.Result) error {
	return json.NewEncoder(w).Encode(verdictRecord{
		Event:              fctx.Event.String(),
		List:               res.List,
		Message:            res.Verdict.Message,
		NotificationDomain: res.NotificationDomain,
		Actions:            res.Verdict.Actions.Fields(),
	})
}

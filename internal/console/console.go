// Package console is the diagnostic log sink shown to the user.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one appended log line.
type Entry struct {
	ID   uuid.UUID
	Time time.Time
	Body string
}

// Console keeps entries newest first. It is unbounded.
type Console struct {
	mu      sync.Mutex
	entries []Entry
	mirror  io.Writer
	now     func() time.Time
}

// New returns an empty console. A non-nil mirror receives every body as it is appended.
func New(mirror io.Writer) *Console {
	return &Console{mirror: mirror, now: time.Now}
}

// Log appends the JSON rendering of args.
func (c *Console) Log(args ...any) Entry {
	if args == nil {
		args = []any{}
	}
	body, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprint(args...))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry{ID: uuid.New(), Time: c.now(), Body: string(body)}
	c.entries = append([]Entry{e}, c.entries...)
	if c.mirror != nil {
		fmt.Fprintln(c.mirror, e.Body)
	}
	return e
}

// Entries returns a copy, newest first.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Text renders all bodies newest first, newline-delimited.
func (c *Console) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	bodies := make([]string, len(c.entries))
	for i, e := range c.entries {
		bodies[i] = e.Body
	}
	return strings.Join(bodies, "\n")
}

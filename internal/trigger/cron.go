// Package trigger emits events on a cron schedule.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Event is one firing of a trigger.
type Event struct {
	Name      string
	Timestamp time.Time
}

type Cron struct {
	name     string
	schedule string
	timezone string
	cron     *cron.Cron
	events   chan Event
	stopOnce sync.Once
}

func NewCron(name, schedule, timezone string) *Cron {
	if name == "" {
		name = "cron"
	}
	return &Cron{
		name:     name,
		schedule: schedule,
		timezone: timezone,
	}
}

func (c *Cron) Name() string {
	return c.name
}

func (c *Cron) Validate() error {
	if c.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", c.schedule, err)
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

// Start schedules the trigger. The returned channel is closed after ctx is done.
// An event is dropped if the previous one has not been consumed yet.
func (c *Cron) Start(ctx context.Context) (<-chan Event, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan Event, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.schedule, func() {
		select {
		case c.events <- Event{Name: c.name, Timestamp: time.Now().UTC()}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

// Next reports when the trigger fires next, or the zero time before Start.
func (c *Cron) Next() time.Time {
	if c.cron == nil {
		return time.Time{}
	}
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (c *Cron) Stop() error {
	c.stopOnce.Do(func() {
		if c.cron != nil {
			ctx := c.cron.Stop()
			<-ctx.Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}

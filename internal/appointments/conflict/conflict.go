// Package conflict detects overlapping appointment slots for an inspector.
package conflict

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/platform/apperr"
)

const minutesPerDay = 24 * 60

// Interval is a half-open [Start, End) span in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals intersect.
// Touching edges do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(value string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", value)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return h*60 + m, nil
}

// NewInterval builds the interval for a slot. The slot must fit within the day.
func NewInterval(start string, durationMinutes int) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	if durationMinutes <= 0 {
		return Interval{}, fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}
	if s+durationMinutes > minutesPerDay {
		return Interval{}, fmt.Errorf("slot %s+%dm runs past midnight", start, durationMinutes)
	}
	return Interval{Start: s, End: s + durationMinutes}, nil
}

// Blocks reports whether an appointment in this status occupies its slot.
func Blocks(status repository.Status) bool {
	return status != repository.StatusCancelled && status != repository.StatusNoShow
}

// Overlapping returns the existing appointments whose slot intersects candidate.
// Cancelled and no-show appointments never conflict. Records with an
// unreadable slot are skipped.
func Overlapping(existing []repository.Appointment, candidate Interval) []repository.Appointment {
	out := make([]repository.Appointment, 0)
	for _, appt := range existing {
		if !Blocks(appt.Status) {
			continue
		}
		slot, err := NewInterval(appt.ScheduledTime, appt.DurationMinutes)
		if err != nil {
			continue
		}
		if slot.Overlaps(candidate) {
			out = append(out, appt)
		}
	}
	return out
}

// Source lists the appointments of one inspector on one date.
type Source interface {
	ListForInspectorDate(ctx context.Context, inspectorID, date string) ([]repository.Appointment, error)
}

// Request describes a candidate slot.
type Request struct {
	InspectorID     string
	Date            string
	StartTime       string
	DurationMinutes int
	// ExcludeID skips the appointment being edited in place.
	ExcludeID string
}

// Detector checks candidate slots against stored appointments.
type Detector struct {
	source Source
}

// NewDetector creates a detector reading from source.
func NewDetector(source Source) *Detector {
	return &Detector{source: source}
}

// Check returns the appointments that conflict with req. An empty result
// means the slot is free. Fetch failures are returned, never treated as free.
func (d *Detector) Check(ctx context.Context, req Request) ([]repository.Appointment, error) {
	if strings.TrimSpace(req.InspectorID) == "" || strings.TrimSpace(req.Date) == "" {
		return nil, apperr.Validation("inspectorId and date are required")
	}
	candidate, err := NewInterval(req.StartTime, req.DurationMinutes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	existing, err := d.source.ListForInspectorDate(ctx, req.InspectorID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments for conflict check: %w", err)
	}

	if req.ExcludeID != "" {
		kept := existing[:0:0]
		for _, appt := range existing {
			if appt.ID != req.ExcludeID {
				kept = append(kept, appt)
			}
		}
		existing = kept
	}

	return Overlapping(existing, candidate), nil
}

// Summary is the client-facing view of a blocking appointment.
type Summary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ScheduledDate   string `json:"scheduledDate"`
	ScheduledTime   string `json:"scheduledTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Status          string `json:"status"`
}

// Summarize converts overlapping appointments to summaries.
func Summarize(items []repository.Appointment) []Summary {
	out := make([]Summary, 0, len(items))
	for _, a := range items {
		out = append(out, Summary{
			ID:              a.ID,
			Title:           a.Title,
			ScheduledDate:   a.ScheduledDate,
			ScheduledTime:   a.ScheduledTime,
			DurationMinutes: a.DurationMinutes,
			Status:          string(a.Status),
		})
	}
	return out
}

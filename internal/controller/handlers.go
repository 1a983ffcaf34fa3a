package controller

import (
	"context"
	"fmt"

	"railbook/internal/booking"
	"railbook/internal/civil"
	"railbook/internal/ics"
	appLog "railbook/internal/log"
	"railbook/internal/preference"
	"railbook/internal/share"
)

func (c *Controller) handleSelect(_ context.Context, ev Event) (Result, error) {
	d, err := civil.Parse(ev.Date)
	if err != nil {
		return Result{}, err
	}
	if !c.Selectable(d) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotSelectable, d)
	}

	if ev.Visitor == "" {
		return Result{}, ErrMissingVisitor
	}

	now := c.Now()
	c.mu.Lock()
	c.remember(ev.Visitor, d, now)
	c.mu.Unlock()

	p := c.Share(d)
	return Result{
		Message: &p.Message,
		Travel:  d.Format(booking.LongLayout),
		Share:   &p,
	}, nil
}

// selection returns the payload for the visitor's selected date.
func (c *Controller) selection(ev Event) (share.Payload, error) {
	d, ok := c.Selected(ev.Visitor)
	if !ok {
		return share.Payload{}, ErrNoSelection
	}
	return c.Share(d), nil
}

func (c *Controller) handleCopy(_ context.Context, ev Event) (Result, error) {
	p, err := c.selection(ev)
	if err != nil {
		return Result{}, err
	}
	toast := share.CopyResult(nil)
	return Result{Share: &p, Text: p.Clipboard, Toast: &toast}, nil
}

func (c *Controller) handleShare(_ context.Context, ev Event) (Result, error) {
	p, err := c.selection(ev)
	if err != nil {
		return Result{}, err
	}
	return Result{Share: &p, Text: p.NativeText, Link: p.NativeURL}, nil
}

func (c *Controller) handleWhatsApp(_ context.Context, ev Event) (Result, error) {
	p, err := c.selection(ev)
	if err != nil {
		return Result{}, err
	}
	return Result{Share: &p, Text: p.WhatsApp, Link: p.WhatsAppURL}, nil
}

func (c *Controller) handleExport(_ context.Context, ev Event) (Result, error) {
	d, ok := c.Selected(ev.Visitor)
	if !ok {
		return Result{}, ErrNoSelection
	}
	doc, err := c.Reminder(d)
	if err != nil {
		return Result{}, err
	}
	p := c.Share(d)
	toast := share.ExportResult(nil)
	return Result{
		Share:    &p,
		ICS:      doc,
		FileName: ics.FileName,
		Link:     p.GoogleCalendarURL,
		Toast:    &toast,
	}, nil
}

func (c *Controller) handleToggleTheme(ctx context.Context, ev Event) (Result, error) {
	if ev.Visitor == "" {
		return Result{}, ErrMissingVisitor
	}
	cur, err := preference.GetOr(ctx, c.prefs, ev.Visitor, preference.ThemeLight)
	if err != nil {
		appLog.Error("controller: read theme failed", err, "visitor", ev.Visitor)
	}
	next := cur.Toggle()
	if err := c.prefs.Set(ctx, ev.Visitor, next); err != nil {
		return Result{}, fmt.Errorf("store theme: %w", err)
	}
	return Result{Theme: next}, nil
}

func (c *Controller) handleOpenPicker(_ context.Context, _ Event) (Result, error) {
	cal := c.Picker()
	return Result{Picker: &cal}, nil
}

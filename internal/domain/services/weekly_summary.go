package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

const summaryDays = 7

// EventCounter aggregates audit events.
// repository.EventRepository satisfies it.
type EventCounter interface {
	CountByTypeSince(ctx context.Context, since time.Time) ([]models.EventCount, error)
}

// WeeklySummaryGenerator builds the weekly protection report for the guardian
type WeeklySummaryGenerator struct {
	events   EventCounter
	guardian *GuardianNotifier
	now      func() time.Time
	logger   *logger.Logger
}

// NewWeeklySummaryGenerator creates a generator
func NewWeeklySummaryGenerator(events EventCounter, guardian *GuardianNotifier, log *logger.Logger) *WeeklySummaryGenerator {
	return &WeeklySummaryGenerator{
		events:   events,
		guardian: guardian,
		now:      time.Now,
		logger:   log.WithComponent("weekly-summary"),
	}
}

// Generate counts the last seven days of events
func (g *WeeklySummaryGenerator) Generate(ctx context.Context) (models.WeeklySummary, error) {
	end := g.now().UTC()
	start := end.AddDate(0, 0, -summaryDays)
	summary := models.WeeklySummary{WeekStart: start, WeekEnd: end}

	counts, err := g.events.CountByTypeSince(ctx, start)
	if err != nil {
		return summary, fmt.Errorf("failed to count events: %w", err)
	}

	for _, c := range counts {
		summary.TotalEvents += c.Count
		if c.RiskLevel == models.RiskDanger {
			summary.CriticalEvents += c.Count
		}
		switch c.Type {
		case models.EventScamBlocked:
			summary.ScamMessagesBlocked += c.Count
		case models.EventScamWarning:
			summary.ScamWarnings += c.Count
		case models.EventSuspiciousCall:
			summary.SuspiciousCalls += c.Count
		case models.EventCallOTPCorrelation:
			summary.CallOTPCorrelations += c.Count
		case models.EventRemoteAccessDetected:
			summary.RemoteAccessAttempts += c.Count
		case models.EventRepeatedScamAttempt:
			summary.RepeatedScams += c.Count
		case models.EventFakeBankDetected:
			summary.FakeBankDetections += c.Count
		}
	}
	return summary, nil
}

// Format renders the summary as the text sent to the guardian
func (g *WeeklySummaryGenerator) Format(s models.WeeklySummary) string {
	var b strings.Builder
	b.WriteString("Weekly Safety Report\n")
	fmt.Fprintf(&b, "%s to %s\n\n", s.WeekStart.Format("Jan 02"), s.WeekEnd.Format("Jan 02"))

	if s.TotalEvents == 0 {
		b.WriteString("Great news! No scam attempts detected this week.\n")
	} else {
		b.WriteString("Protection Summary:\n")
		lines := []struct {
			n    int
			text string
		}{
			{s.ScamMessagesBlocked, "scam message(s) blocked"},
			{s.ScamWarnings, "suspicious message(s) flagged"},
			{s.SuspiciousCalls, "suspicious call(s) detected"},
			{s.CallOTPCorrelations, "scam call + OTP attempt(s)"},
			{s.RemoteAccessAttempts, "remote access attempt(s) blocked"},
			{s.RepeatedScams, "repeated scam attempt(s)"},
			{s.FakeBankDetections, "fake bank message(s) detected"},
		}
		for _, l := range lines {
			if l.n > 0 {
				fmt.Fprintf(&b, "- %d %s\n", l.n, l.text)
			}
		}
		if s.CriticalEvents > 0 {
			fmt.Fprintf(&b, "\n%d critical threat(s) blocked\n", s.CriticalEvents)
		}
	}
	b.WriteString("\nYour loved one is protected by Scam Guard.")
	return b.String()
}

// GenerateAndSend builds the summary and delivers it to the guardian
func (g *WeeklySummaryGenerator) GenerateAndSend(ctx context.Context) (models.WeeklySummary, error) {
	s, err := g.Generate(ctx)
	if err != nil {
		return s, err
	}
	if g.guardian == nil {
		return s, nil
	}
	if err := g.guardian.SendWeeklySummary(ctx, g.Format(s)); err != nil {
		return s, err
	}
	g.logger.Info().Int("events", s.TotalEvents).Msg("weekly summary sent")
	return s, nil
}

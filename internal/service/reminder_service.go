package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/fee"
)

type standingsSource interface {
	Standings(ctx context.Context) ([]Standing, time.Time, error)
}

// ReminderConfig supplies the organisation details quoted in messages.
type ReminderConfig struct {
	OrgName        string
	CurrencySymbol string
}

// ReminderService drafts fee reminder messages for unpaid students.
type ReminderService struct {
	source standingsSource
	cfg    ReminderConfig
}

// NewReminderService constructs a ReminderService.
func NewReminderService(source standingsSource, cfg ReminderConfig) *ReminderService {
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = "₹"
	}
	return &ReminderService{source: source, cfg: cfg}
}

// Batch returns one reminder per active student with dues plus a combined broadcast text.
func (s *ReminderService) Batch(ctx context.Context) (*dto.ReminderBatchResponse, error) {
	standings, _, err := s.source.Standings(ctx)
	if err != nil {
		return nil, err
	}
	unpaid := UnpaidStandings(standings)
	resp := &dto.ReminderBatchResponse{Reminders: make([]dto.Reminder, 0, len(unpaid))}
	messages := make([]string, 0, len(unpaid))
	for _, st := range unpaid {
		msg := s.Message(st.Student.Name, st.Result)
		messages = append(messages, msg)
		resp.Reminders = append(resp.Reminders, dto.Reminder{
			StudentID:    st.Student.ID,
			Name:         st.Student.Name,
			Phone:        st.Student.Phone,
			UnpaidMonths: st.Result.UnpaidMonths,
			TotalDue:     st.Result.TotalDue,
			Message:      msg,
			WhatsAppURL:  WhatsAppURL(st.Student.Phone, msg),
		})
	}
	resp.Broadcast = strings.Join(messages, "\n\n")
	return resp, nil
}

// Message renders the reminder text for one student.
func (s *ReminderService) Message(name string, res fee.Result) string {
	return fmt.Sprintf("Dear %s, your %s fee for %s (total %s%s) is due. Please pay as soon as possible. – %s",
		name, s.cfg.OrgName, strings.Join(res.UnpaidMonths, ", "), s.cfg.CurrencySymbol, res.TotalDue.String(), s.cfg.OrgName)
}

// WhatsAppURL builds a click-to-chat link. It returns an empty string when phone has no digits.
func WhatsAppURL(phone, text string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits.String(), url.QueryEscape(text))
}

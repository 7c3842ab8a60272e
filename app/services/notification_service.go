// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
)

// ReplyNotification describes a lead's first reply to a campaign
type ReplyNotification struct {
	OwnerEmail   string
	CampaignID   uuid.UUID
	CampaignName string
	LeadName     string
	LeadEmail    string
	ReplySubject string
	ReplyContent string
}

// NotificationService tells campaign owners about engagement that needs a human
type NotificationService interface {
	NotifyReply(ctx context.Context, n ReplyNotification) error
}

// EmailNotificationService delivers notifications through a Mailer
type EmailNotificationService struct {
	mailer  Mailer
	siteURL string
}

// NewEmailNotificationService creates a notifier that links back to siteURL
func NewEmailNotificationService(mailer Mailer, siteURL string) *EmailNotificationService {
	return &EmailNotificationService{mailer: mailer, siteURL: strings.TrimRight(siteURL, "/")}
}

func (s *EmailNotificationService) NotifyReply(ctx context.Context, n ReplyNotification) error {
	if !strings.Contains(n.OwnerEmail, "@") {
		return fmt.Errorf("invalid owner email %q", n.OwnerEmail)
	}

	who := n.LeadName
	if who == "" {
		who = n.LeadEmail
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<p><strong>%s</strong> replied to <strong>%s</strong>.</p>", html.EscapeString(who), html.EscapeString(n.CampaignName))
	if n.ReplySubject != "" {
		fmt.Fprintf(&body, "<p>Subject: %s</p>", html.EscapeString(n.ReplySubject))
	}
	if n.ReplyContent != "" {
		fmt.Fprintf(&body, "<blockquote>%s</blockquote>", html.EscapeString(n.ReplyContent))
	}
	fmt.Fprintf(&body, `<p><a href="%s/api/v1/campaigns/%s/stats">Campaign stats</a></p>`, s.siteURL, n.CampaignID)

	_, err := s.mailer.Send(ctx, OutgoingEmail{
		To:      n.OwnerEmail,
		Subject: fmt.Sprintf("New reply from %s", who),
		HTML:    body.String(),
	})
	return err
}

// NoopNotificationService drops every notification
type NoopNotificationService struct{}

func (NoopNotificationService) NotifyReply(context.Context, ReplyNotification) error { return nil }

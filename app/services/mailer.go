package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/amirphl/orochi-outreach/config"
)

// Account selection policies
const (
	AccountPolicyRoundRobin = "round_robin"
	AccountPolicyFirst      = "first"
)

// ErrNoSenderAccounts is returned when the relay has no account to send from
var ErrNoSenderAccounts = errors.New("no sender accounts configured")

// SenderAccount is a mailbox the relay authenticates as
type SenderAccount struct {
	Username string
	Password string
}

// AccountSelector picks the sender account for the next message
type AccountSelector interface {
	Next(accounts []SenderAccount) (SenderAccount, error)
}

// RoundRobinSelector rotates through the accounts; the cursor lives on the selector
type RoundRobinSelector struct {
	mu   sync.Mutex
	next int
}

func (s *RoundRobinSelector) Next(accounts []SenderAccount) (SenderAccount, error) {
	if len(accounts) == 0 {
		return SenderAccount{}, ErrNoSenderAccounts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account := accounts[s.next%len(accounts)]
	s.next = (s.next + 1) % len(accounts)
	return account, nil
}

// FirstAccountSelector always sends from the first account
type FirstAccountSelector struct{}

func (FirstAccountSelector) Next(accounts []SenderAccount) (SenderAccount, error) {
	if len(accounts) == 0 {
		return SenderAccount{}, ErrNoSenderAccounts
	}
	return accounts[0], nil
}

// NewAccountSelector maps a configured policy name to a selector
func NewAccountSelector(policy string) (AccountSelector, error) {
	switch policy {
	case "", AccountPolicyRoundRobin:
		return &RoundRobinSelector{}, nil
	case AccountPolicyFirst:
		return FirstAccountSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown account policy %q", policy)
	}
}

// ParseSenderAccounts reads user:password pairs
func ParseSenderAccounts(entries []string) ([]SenderAccount, error) {
	accounts := make([]SenderAccount, 0, len(entries))
	for _, entry := range entries {
		user, password, ok := strings.Cut(entry, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("invalid sender account entry %q", entry)
		}
		accounts = append(accounts, SenderAccount{Username: user, Password: password})
	}
	return accounts, nil
}

// OutgoingEmail is one personalized message
type OutgoingEmail struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a single message and returns the message id it was sent with
type Mailer interface {
	Send(ctx context.Context, email OutgoingEmail) (string, error)
}

// Dialer abstracts gomail's dialer so tests can capture messages
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends through an SMTP relay with the account chosen by its selector
type SMTPMailer struct {
	cfg       *config.SMTPConfig
	accounts  []SenderAccount
	selector  AccountSelector
	newDialer func(account SenderAccount) Dialer
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg *config.SMTPConfig, accounts []SenderAccount, selector AccountSelector) *SMTPMailer {
	return &SMTPMailer{
		cfg:      cfg,
		accounts: accounts,
		selector: selector,
		newDialer: func(account SenderAccount) Dialer {
			return gomail.NewDialer(cfg.Host, cfg.Port, account.Username, account.Password)
		},
	}
}

// WithDialerFactory replaces how dialers are built
func (m *SMTPMailer) WithDialerFactory(factory func(account SenderAccount) Dialer) *SMTPMailer {
	m.newDialer = factory
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, email OutgoingEmail) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.Contains(email.To, "@") {
		return "", fmt.Errorf("invalid recipient %q", email.To)
	}

	account, err := m.selector.Next(m.accounts)
	if err != nil {
		return "", err
	}

	domain := "localhost"
	if _, host, ok := strings.Cut(account.Username, "@"); ok && host != "" {
		domain = host
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)

	msg := gomail.NewMessage()
	if m.cfg.FromName != "" {
		msg.SetAddressHeader("From", account.Username, m.cfg.FromName)
	} else {
		msg.SetHeader("From", account.Username)
	}
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetHeader("Message-ID", messageID)
	msg.SetBody("text/html", email.HTML)

	// a started delivery is not abandoned on cancellation
	if err := m.newDialer(account).DialAndSend(msg); err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	return messageID, nil
}

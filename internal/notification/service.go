// Package notification implements the all-users email fan-out: page through
// every account, filter out admins and address-less accounts, and forward
// each page to the email dispatch service.
package notification

import (
	"context"
	"log/slog"

	"civreg/internal/users"
	dErrors "civreg/pkg/domain-errors"
)

// DefaultPageSize is how many users one fan-out page covers.
const DefaultPageSize = 500

// UserSearcher pages through the user-management store.
type UserSearcher interface {
	SearchUsers(ctx context.Context, count, skip int, token string) (*users.SearchPage, error)
}

// Dispatcher forwards one batch of recipients to the email service.
type Dispatcher interface {
	SendAllUsersEmail(ctx context.Context, email Email, token string) error
}

// Email is the message forwarded to the dispatch service, with the page's
// recipients as blind copies.
type Email struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Locale  string   `json:"locale"`
	BCC     []string `json:"bcc"`
}

// Service runs the paginated fan-out.
type Service struct {
	users    UserSearcher
	dispatch Dispatcher
	pageSize int
	logger   *slog.Logger
}

func NewService(searcher UserSearcher, dispatch Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		users:    searcher,
		dispatch: dispatch,
		pageSize: DefaultPageSize,
		logger:   logger,
	}
}

// SendEmailToAllUsers walks every user page and forwards each page's eligible
// recipients. Any page fetch or dispatch failure fails the whole operation:
// a partial fan-out is reported as an internal error rather than papered over.
func (s *Service) SendEmailToAllUsers(ctx context.Context, subject, body, locale, token string) error {
	total := 0
	for page := 0; ; page++ {
		res, err := s.users.SearchUsers(ctx, s.pageSize, page*s.pageSize, token)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "user search failed during fan-out", err)
		}
		if len(res.Results) > 0 {
			if total == 0 {
				total = res.Total
			}
			recipients := eligibleRecipients(res.Results)
			if len(recipients) > 0 {
				err := s.dispatch.SendAllUsersEmail(ctx, Email{
					Subject: subject,
					Body:    body,
					Locale:  locale,
					BCC:     recipients,
				}, token)
				if err != nil {
					return dErrors.Wrap(dErrors.CodeInternal, "email dispatch failed during fan-out", err)
				}
			}
			s.logger.InfoContext(ctx, "fan-out page dispatched",
				"page", page,
				"recipients", len(recipients),
			)
		}
		if total == 0 || (page+1)*s.pageSize >= total {
			return nil
		}
	}
}

// eligibleRecipients drops national system admins and accounts without a
// notification address.
func eligibleRecipients(page []users.User) []string {
	recipients := make([]string, 0, len(page))
	for _, user := range page {
		if user.SystemRole == users.RoleNationalSystemAdmin {
			continue
		}
		if user.EmailForNotification == "" {
			continue
		}
		recipients = append(recipients, user.EmailForNotification)
	}
	return recipients
}

package chat

import (
	"context"
	"fmt"
	"sort"

	"dm-service/internal/models"
)

// ListCounterparts returns every other user with the number of messages they
// sent observerID that are still unread. Counts come from one grouped store
// query, not one query per user.
func (s *Service) ListCounterparts(ctx context.Context, observerID string) ([]models.SidebarUser, error) {
	ctx, span := s.tracer.Start(ctx, "chat.ListCounterparts")
	defer span.End()

	users, err := s.users.ListUsersExcept(ctx, observerID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list users: %w", err))
	}
	counts, err := s.messages.UnreadCounts(ctx, observerID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("unread counts: %w", err))
	}

	out := make([]models.SidebarUser, 0, len(users))
	for _, u := range users {
		if u.ID == observerID {
			continue
		}
		out = append(out, models.SidebarUser{
			ID:          u.ID,
			FullName:    u.FullName,
			ProfilePic:  u.ProfilePic,
			UnreadCount: counts[u.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

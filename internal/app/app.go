package app

import (
	"context"
	"fmt"

	"github.com/lumen-reader/lumen/internal/miniflux"
	"github.com/lumen-reader/lumen/internal/storage"
)

// DefaultCacheLimit bounds the offline sequence shown before the first
// network page arrives.
const DefaultCacheLimit = 200

type Backend interface {
	ListGroups(ctx context.Context) ([]miniflux.Group, error)
	ToggleStarred(ctx context.Context, id int64) error
}

type Repository interface {
	SaveArticles(ctx context.Context, articles []miniflux.Article) error
	ListArticles(ctx context.Context, limit int) ([]miniflux.Article, error)
	MarkArticlesRead(ctx context.Context, ids []int64) error
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	GetBoolPreference(ctx context.Context, key string, fallback bool) (bool, error)
	SetBoolPreference(ctx context.Context, key string, value bool) error
	GetIDListPreference(ctx context.Context, key string) ([]int64, error)
	SetIDListPreference(ctx context.Context, key string, ids []int64) error
	ListSchedules(ctx context.Context) ([]storage.DigestSchedule, error)
	AddSchedule(ctx context.Context, s storage.DigestSchedule) (int64, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// Service sits between the TUI and the backend/cache pair: fetched pages are
// mirrored into sqlite, local state changes are applied to both sides.
type Service struct {
	client Backend
	repo   Repository
}

func NewService(client Backend, repo Repository) *Service {
	return &Service{client: client, repo: repo}
}

func (s *Service) CacheArticles(ctx context.Context, articles []miniflux.Article) error {
	if len(articles) == 0 {
		return nil
	}
	if err := s.repo.SaveArticles(ctx, articles); err != nil {
		return fmt.Errorf("save articles to cache: %w", err)
	}
	return nil
}

func (s *Service) ListCached(ctx context.Context, limit int) ([]miniflux.Article, error) {
	articles, err := s.repo.ListArticles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load articles from cache: %w", err)
	}
	return articles, nil
}

// MarkReadLocal updates the cache only. The remote call is owned by the
// read tracker, which already sent or queued it.
func (s *Service) MarkReadLocal(ctx context.Context, ids []int64) error {
	if err := s.repo.MarkArticlesRead(ctx, ids); err != nil {
		return fmt.Errorf("mark cached articles read: %w", err)
	}
	return nil
}

func (s *Service) LoadGroups(ctx context.Context) ([]miniflux.Group, error) {
	groups, err := s.client.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}
	return groups, nil
}

func (s *Service) ToggleStarred(ctx context.Context, id int64) error {
	if err := s.client.ToggleStarred(ctx, id); err != nil {
		return fmt.Errorf("toggle starred: %w", err)
	}
	return nil
}

// DefaultDigestHour is the local hour newly scheduled daily digests run at.
const DefaultDigestHour = 8

// ToggleDailyDigest schedules a daily digest for the group, or removes the
// existing schedule when the group already has one. Reports whether the
// group ends up scheduled.
func (s *Service) ToggleDailyDigest(ctx context.Context, groupID int64) (bool, error) {
	schedules, err := s.repo.ListSchedules(ctx)
	if err != nil {
		return false, fmt.Errorf("list digest schedules: %w", err)
	}
	for _, sched := range schedules {
		if sched.GroupID == groupID {
			if err := s.repo.DeleteSchedule(ctx, sched.ID); err != nil {
				return false, fmt.Errorf("remove digest schedule: %w", err)
			}
			return false, nil
		}
	}
	_, err = s.repo.AddSchedule(ctx, storage.DigestSchedule{
		GroupID: groupID,
		Hour:    DefaultDigestHour,
		Enabled: true,
	})
	if err != nil {
		return false, fmt.Errorf("add digest schedule: %w", err)
	}
	return true, nil
}

// Preferences is the locally persisted UI state.
type Preferences struct {
	ScrollMarkAsRead bool
	ShowThumbnails   bool
	Language         string
	CollapsedGroups  []int64
	PinnedGroups     []int64
}

func DefaultPreferences() Preferences {
	return Preferences{
		ScrollMarkAsRead: true,
		ShowThumbnails:   true,
		Language:         "English",
	}
}

func (s *Service) LoadPreferences(ctx context.Context) (Preferences, error) {
	prefs := DefaultPreferences()

	var err error
	prefs.ScrollMarkAsRead, err = s.repo.GetBoolPreference(ctx, storage.PrefScrollMarkAsRead, prefs.ScrollMarkAsRead)
	if err != nil {
		return prefs, fmt.Errorf("load scroll preference: %w", err)
	}
	prefs.ShowThumbnails, err = s.repo.GetBoolPreference(ctx, storage.PrefShowThumbnails, prefs.ShowThumbnails)
	if err != nil {
		return prefs, fmt.Errorf("load thumbnail preference: %w", err)
	}
	if lang, ok, err := s.repo.GetPreference(ctx, storage.PrefLanguage); err != nil {
		return prefs, fmt.Errorf("load language preference: %w", err)
	} else if ok {
		prefs.Language = lang
	}
	prefs.CollapsedGroups, err = s.repo.GetIDListPreference(ctx, storage.PrefCollapsedGroups)
	if err != nil {
		return prefs, fmt.Errorf("load collapsed groups: %w", err)
	}
	prefs.PinnedGroups, err = s.repo.GetIDListPreference(ctx, storage.PrefPinnedGroups)
	if err != nil {
		return prefs, fmt.Errorf("load pinned groups: %w", err)
	}
	return prefs, nil
}

func (s *Service) SavePreferences(ctx context.Context, prefs Preferences) error {
	if err := s.repo.SetBoolPreference(ctx, storage.PrefScrollMarkAsRead, prefs.ScrollMarkAsRead); err != nil {
		return fmt.Errorf("save scroll preference: %w", err)
	}
	if err := s.repo.SetBoolPreference(ctx, storage.PrefShowThumbnails, prefs.ShowThumbnails); err != nil {
		return fmt.Errorf("save thumbnail preference: %w", err)
	}
	if err := s.repo.SetPreference(ctx, storage.PrefLanguage, prefs.Language); err != nil {
		return fmt.Errorf("save language preference: %w", err)
	}
	if err := s.repo.SetIDListPreference(ctx, storage.PrefCollapsedGroups, prefs.CollapsedGroups); err != nil {
		return fmt.Errorf("save collapsed groups: %w", err)
	}
	if err := s.repo.SetIDListPreference(ctx, storage.PrefPinnedGroups, prefs.PinnedGroups); err != nil {
		return fmt.Errorf("save pinned groups: %w", err)
	}
	return nil
}

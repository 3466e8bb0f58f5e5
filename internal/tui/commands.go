package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumen-reader/lumen/internal/app"
	"github.com/lumen-reader/lumen/internal/miniflux"
)

const serviceCallTimeout = 10 * time.Second

func listenSessionCmd(sess ListSession) tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg{event: <-sess.Events()}
	}
}

func loadGroupsCmd(svc Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		groups, err := svc.LoadGroups(ctx)
		if err != nil {
			return groupsErrorMsg{err: err}
		}
		return groupsLoadedMsg{groups: groups}
	}
}

func cacheArticlesCmd(svc Service, articles []miniflux.Article) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		if err := svc.CacheArticles(ctx, articles); err != nil {
			return localMarkErrorMsg{err: err}
		}
		return nil
	}
}

func markReadLocalCmd(svc Service, ids []int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		if err := svc.MarkReadLocal(ctx, ids); err != nil {
			return localMarkErrorMsg{err: err}
		}
		return nil
	}
}

func toggleStarCmd(svc Service, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		return starToggledMsg{id: id, err: svc.ToggleStarred(ctx, id)}
	}
}

func toggleDigestScheduleCmd(svc Service, groupID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		scheduled, err := svc.ToggleDailyDigest(ctx, groupID)
		return digestScheduleMsg{groupID: groupID, scheduled: scheduled, err: err}
	}
}

func savePreferencesCmd(svc Service, prefs app.Preferences) tea.Cmd {
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		if err := svc.SavePreferences(ctx, prefs); err != nil {
			return preferenceSaveErrorMsg{err: err}
		}
		return nil
	}
}

func thumbnailCmd(render func(string, int) (string, error), articleID int64, url string, width int) tea.Cmd {
	return func() tea.Msg {
		preview, err := render(url, width)
		return thumbnailMsg{articleID: articleID, preview: preview, err: err}
	}
}

package app

import (
	"context"
	"log/slog"

	"NewsShell/internal/domain"
	"NewsShell/internal/infrastructure/pagemeta"
)

// logPresenter stands in for native screens when the shell runs headless.
type logPresenter struct {
	logger *slog.Logger
}

func (p logPresenter) PresentAccountFlow(kind domain.AccountFlowKind) {
	p.logger.Info("present account flow", "kind", kind)
}

func (p logPresenter) PresentPDFViewer(url string) {
	p.logger.Info("present pdf viewer", "url", url)
}

func (p logPresenter) PresentNewNativeScreen(url, title string) {
	p.logger.Info("present native screen", "url", url, "title", title)
}

func (p logPresenter) OpenExternal(url string) {
	p.logger.Info("open external browser", "url", url)
}

func (p logPresenter) OpenInternalOverlay(url string) {
	p.logger.Info("open internal overlay", "url", url)
}

func (p logPresenter) OpenExternalApp(appURL, fallbackURL string) {
	p.logger.Info("open external app", "app_url", appURL, "fallback", fallbackURL)
}

func (p logPresenter) SelectHomeTab() { p.logger.Info("select home tab") }

func (p logPresenter) PresentMenu() { p.logger.Info("present menu") }

type logIndicator struct {
	logger *slog.Logger
}

func (i logIndicator) Update(from, to int, progress float64) {
	i.logger.Debug("indicator", "from", from, "to", to, "progress", progress)
}

// PageTitles reads titles with the page metadata extractor.
type PageTitles struct {
	Extractor *pagemeta.Extractor
}

// Title fetches url and returns its best title.
func (t PageTitles) Title(ctx context.Context, url string) (string, error) {
	meta, err := t.Extractor.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return meta.Title, nil
}

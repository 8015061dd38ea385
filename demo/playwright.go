package demo

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

const installHint = "Install with 'playwright install chromium' (or go run github.com/playwright-community/playwright-go/cmd/playwright install chromium)."

// ProbeDependencies checks that the Playwright driver is installed and that
// Chromium can actually launch.
func ProbeDependencies() DependencyStatus {
	status := DependencyStatus{}

	pw, err := playwright.Run()
	if err != nil {
		status.Error = fmt.Sprintf("Playwright driver unavailable: %v. %s", err, installHint)
		return status
	}
	defer func() { _ = pw.Stop() }()
	status.DriverOK = true

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		status.Error = fmt.Sprintf("Playwright Chromium launch failed: %v. %s", err, installHint)
		return status
	}
	_ = browser.Close()

	status.BrowserOK = true
	status.OK = true
	return status
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// NewPlaywrightSession launches headless Chromium with video recording and
// returns it as a BrowserSession.
func NewPlaywrightSession(opts LaunchOptions) (BrowserSession, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
		RecordVideo: &playwright.RecordVideo{
			Dir:  opts.RecordVideoDir,
			Size: &playwright.Size{Width: opts.Width, Height: opts.Height},
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}

	return &playwrightSession{pw: pw, browser: browser, context: context, page: page}, nil
}

func (s *playwrightSession) Goto(url string, timeoutMS int64) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeoutMS)),
	})
	return err
}

func (s *playwrightSession) Click(selector string, timeoutMS int64) error {
	return s.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeoutMS)),
	})
}

func (s *playwrightSession) Fill(selector, value string, timeoutMS int64) error {
	return s.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: playwright.Float(float64(timeoutMS)),
	})
}

func (s *playwrightSession) Press(selector, key string, timeoutMS int64) error {
	return s.page.Press(selector, key, playwright.PagePressOptions{
		Timeout: playwright.Float(float64(timeoutMS)),
	})
}

func (s *playwrightSession) WaitForTimeout(ms int64) {
	s.page.WaitForTimeout(float64(ms))
}

func (s *playwrightSession) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (s *playwrightSession) StartTracing() error {
	return s.context.Tracing().Start(playwright.TracingStartOptions{
		Screenshots: playwright.Bool(true),
		Snapshots:   playwright.Bool(true),
	})
}

func (s *playwrightSession) StopTracing(path string) error {
	return s.context.Tracing().Stop(path)
}

func (s *playwrightSession) VideoPath() (string, error) {
	video := s.page.Video()
	if video == nil {
		return "", fmt.Errorf("no video attached to page")
	}
	return video.Path()
}

func (s *playwrightSession) Close() error {
	_ = s.page.Close()
	_ = s.context.Close()
	err := s.browser.Close()
	_ = s.pw.Stop()
	return err
}

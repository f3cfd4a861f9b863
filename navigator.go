package tendercrawler

import (
	"context"
	"encoding/json"
	"fmt"
)

// navigateToNotices opens the notice board. Every strategy may fail; the
// search step then runs on whatever page is showing.
func (app *Crawler) navigateToNotices(page Page) {
	app.Logger.Info("Navigating to %s", app.selectors.NavigateText)

	for _, loc := range app.selectors.NavigateMenu {
		n, err := page.Count(loc)
		if err != nil || n == 0 {
			continue
		}
		if err := page.Click(loc, 0); err != nil {
			app.Logger.Warn("Clicking %s failed: %v", loc.Name, err)
			continue
		}
		app.Logger.Debug("Navigated via %s", loc.Name)
		return
	}

	clicked, err := page.Evaluate(menuClickScript(app.selectors))
	switch {
	case err != nil:
		app.Logger.Warn("Menu navigation script failed: %v", err)
	case clicked != true:
		app.Logger.Warn("No menu entry labelled %s found, searching on the landing page", app.selectors.NavigateText)
	default:
		app.Logger.Debug("Navigated via menu script")
	}
}

// menuClickScript clicks the first menu element whose text contains the label.
func menuClickScript(selectors SiteSelectors) string {
	label, _ := json.Marshal(selectors.NavigateText)
	var css []string
	for _, loc := range selectors.NavigateMenu {
		css = append(css, loc.Selector)
	}
	query, _ := json.Marshal(css)
	return fmt.Sprintf(`() => {
	const label = %s;
	for (const selector of %s) {
		for (const el of document.querySelectorAll(selector)) {
			if (el.innerText && el.innerText.includes(label)) {
				el.click();
				return true;
			}
		}
	}
	return false;
}`, label, query)
}

// searchKeyword runs one search and reads the result grid. Missing inputs fail
// with ErrTransientUI so the caller's RetryPolicy runs the whole step again.
func (app *Crawler) searchKeyword(ctx context.Context, page Page, keyword string, req SearchRequest) ([]AnnouncementRecord, error) {
	input, err := firstPresent(page, app.selectors.SearchInput)
	if err != nil {
		return nil, err
	}
	if err := page.Type(input, 0, keyword, app.engine.TypeDelay); err != nil {
		return nil, fmt.Errorf("%w: type keyword: %w", ErrTransientUI, err)
	}

	app.fillDateRange(page, req)

	button, err := firstPresent(page, app.selectors.SubmitButton)
	if err != nil {
		return nil, err
	}
	if err := page.Click(button, 0); err != nil {
		return nil, fmt.Errorf("%w: submit search: %w", ErrTransientUI, err)
	}

	app.waitForLoading(page)
	if err := settle(ctx, app.engine.SearchSettle); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: read result grid: %w", ErrTransientUI, err)
	}
	rows, err := GridRowsFromHTML(html, app.selectors.GridRow, app.selectors.GridCell)
	if err != nil {
		return nil, fmt.Errorf("%w: parse result grid: %w", ErrTransientUI, err)
	}

	records := ParseResultGrid(rows, app.BaseUrl, app.now())
	for i := range records {
		records[i].KeywordMatched = keyword
	}
	return records, nil
}

// fillDateRange fills the first two date inputs when a start date is given.
// The end date defaults to today.
func (app *Crawler) fillDateRange(page Page, req SearchRequest) {
	if req.Start == nil {
		return
	}
	n, err := page.Count(app.selectors.DateInputs)
	if err != nil || n < 2 {
		app.Logger.Debug("Date inputs not found (%d), searching without a date range", n)
		return
	}
	end := app.now()
	if req.End != nil {
		end = *req.End
	}
	if err := page.Fill(app.selectors.DateInputs, 0, req.Start.Format(searchDateFormat)); err != nil {
		app.Logger.Debug("Filling start date failed: %v", err)
		return
	}
	if err := page.Fill(app.selectors.DateInputs, 1, end.Format(searchDateFormat)); err != nil {
		app.Logger.Debug("Filling end date failed: %v", err)
	}
}

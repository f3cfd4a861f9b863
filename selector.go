package tendercrawler

// Locator finds elements by CSS selector, optionally narrowed to those containing HasText.
type Locator struct {
	Name     string
	Selector string
	HasText  string
}

// SiteSelectors lists the locator chains of a portal. Each chain is tried in order.
type SiteSelectors struct {
	SearchInput  []Locator
	DateInputs   Locator
	SubmitButton []Locator
	LoadingMask  Locator
	NavigateMenu []Locator
	NavigateText string
	GridRow      string
	GridCell     string
}

// KepcoSelectors matches the ExtJS deployment of the KEPCO SRM portal.
// ExtJS regenerates element ids, so inputs are matched by id prefix and suffix
// and buttons by their visible label.
func KepcoSelectors() SiteSelectors {
	return SiteSelectors{
		SearchInput: []Locator{
			{Name: "search input", Selector: "[id^='textfield-'][id$='-inputEl']"},
		},
		DateInputs: Locator{Name: "date inputs", Selector: "[id*='ext-comp-'][id$='-inputEl']"},
		SubmitButton: []Locator{
			{Name: "search button", Selector: ".x-btn-text", HasText: "조회"},
			{Name: "search button fallback", Selector: "[id^='button-']", HasText: "조회"},
		},
		LoadingMask: Locator{Name: "loading mask", Selector: ".x-mask, .x-mask-loading"},
		NavigateMenu: []Locator{
			{Name: "menu item", Selector: ".x-menu-item-text", HasText: "통합공고"},
			{Name: "menu item element", Selector: "[id*='menuitem'][id*='itemEl']", HasText: "통합공고"},
			{Name: "tree node", Selector: ".x-tree-node-text", HasText: "통합공고"},
		},
		NavigateText: "통합공고",
		GridRow:      ".x-grid-row",
		GridCell:     ".x-grid-cell-inner",
	}
}

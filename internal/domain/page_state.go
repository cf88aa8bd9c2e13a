package domain

// PageState is everything a client needs to render one page's canvas.
type PageState struct {
	PageID int64   `json:"pageId"`
	Blocks []Block `json:"blocks"`
	Extent Extent  `json:"extent"`
}

package tui

import "github.com/pders01/newspulse/internal/config"

const (
	// headerHeight covers the title row and the bordered search row.
	headerHeight = 4
	// footerHeight covers the separator and the status line.
	footerHeight = 2

	searchButtonWidth = 10
	maxColumns        = 4

	modalMaxWidth  = 84
	modalMaxHeight = 28
	closeLabel     = "[x]"
)

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// gridLayout describes how result cards tile the content area.
type gridLayout struct {
	top         int
	columns     int
	cardWidth   int
	cardHeight  int
	visibleRows int
}

// columnsFor picks between one and four columns so that no card is narrower
// than minWidth.
func columnsFor(width, minWidth int) int {
	if minWidth <= 0 {
		minWidth = 32
	}
	cols := width / minWidth
	if cols < 1 {
		return 1
	}
	if cols > maxColumns {
		return maxColumns
	}
	return cols
}

func newGridLayout(width, height int, card config.CardConfig) gridLayout {
	cols := columnsFor(width, card.MinWidth)
	cardWidth := width / cols
	if cardWidth < 8 {
		cardWidth = 8
	}

	g := gridLayout{
		top:        headerHeight,
		columns:    cols,
		cardWidth:  cardWidth,
		cardHeight: cardFrameHeight(card),
	}
	g.visibleRows = contentHeight(height) / g.cardHeight
	if g.visibleRows < 1 {
		g.visibleRows = 1
	}
	return g
}

// cardFrameHeight is the rendered height of one card: border, title, a blank
// separator and the content excerpt.
func cardFrameHeight(card config.CardConfig) int {
	return 2 + cardTitleLines(card) + 1 + cardContentLines(card)
}

func cardTitleLines(card config.CardConfig) int {
	if card.TitleLines <= 0 {
		return 2
	}
	return card.TitleLines
}

func cardContentLines(card config.CardConfig) int {
	if card.ContentLines <= 0 {
		return 3
	}
	return card.ContentLines
}

// innerWidth is the text width inside a card's border and padding.
func (g gridLayout) innerWidth() int {
	w := g.cardWidth - 4
	if w < 1 {
		return 1
	}
	return w
}

func (g gridLayout) rows(count int) int {
	return (count + g.columns - 1) / g.columns
}

// cellAt maps a screen position to a card index, given the first visible row.
func (g gridLayout) cellAt(x, y, rowOffset int) (int, bool) {
	if x < 0 || y < g.top {
		return 0, false
	}
	row := (y - g.top) / g.cardHeight
	col := x / g.cardWidth
	if row >= g.visibleRows || col >= g.columns {
		return 0, false
	}
	return (rowOffset+row)*g.columns + col, true
}

func contentHeight(height int) int {
	h := height - headerHeight - footerHeight
	if h < 1 {
		return 1
	}
	return h
}

// searchButtonRect is the clickable Search button at the right of the search row.
func searchButtonRect(width int) rect {
	return rect{x: width - searchButtonWidth, y: 1, w: searchButtonWidth, h: 3}
}

func searchInputRect(width int) rect {
	return rect{x: 0, y: 1, w: width - searchButtonWidth - 1, h: 3}
}

// modalRect centers the detail overlay on screen.
func modalRect(width, height int) rect {
	w := width - 4
	if w > modalMaxWidth {
		w = modalMaxWidth
	}
	if w < 20 {
		w = min(width, 20)
	}
	h := height - 2
	if h > modalMaxHeight {
		h = modalMaxHeight
	}
	if h < 8 {
		h = min(height, 8)
	}
	return rect{x: (width - w) / 2, y: (height - h) / 2, w: w, h: h}
}

// modalInnerWidth is the text width inside the modal border and padding.
func (r rect) modalInnerWidth() int {
	w := r.w - 4
	if w < 1 {
		return 1
	}
	return w
}

// modalBodyHeight is the viewport height below the modal title row and rule.
func (r rect) modalBodyHeight() int {
	h := r.h - 4
	if h < 1 {
		return 1
	}
	return h
}

// closeControlRect locates the close label on the modal title row, right
// aligned inside the border and padding.
func closeControlRect(m rect) rect {
	return rect{x: m.x + m.w - 2 - len(closeLabel), y: m.y + 1, w: len(closeLabel), h: 1}
}

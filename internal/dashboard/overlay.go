package dashboard

import "github.com/pders01/newspulse/internal/news"

// Overlay is the detail view for one selected item. It is either hidden or
// visible with exactly one item.
type Overlay struct {
	selected *news.Item
}

// Open shows item, replacing any item already shown.
func (o *Overlay) Open(item news.Item) {
	o.selected = &item
}

// Close hides the overlay. Closing a hidden overlay is a no-op.
func (o *Overlay) Close() {
	o.selected = nil
}

func (o *Overlay) Visible() bool { return o.selected != nil }

// Selected returns the shown item.
func (o *Overlay) Selected() (news.Item, bool) {
	if o.selected == nil {
		return news.Item{}, false
	}
	return *o.selected, true
}

// Region names where a pointer event landed relative to the overlay.
type Region int

const (
	RegionBackdrop Region = iota
	RegionBody
	RegionClose
)

// Click applies a pointer click. Backdrop and close clicks hide the overlay;
// clicks on the body are contained and change nothing. It reports whether
// the overlay was hidden by this click.
func (o *Overlay) Click(r Region) bool {
	if !o.Visible() {
		return false
	}
	switch r {
	case RegionBackdrop, RegionClose:
		o.Close()
		return true
	default:
		return false
	}
}

package chat

import "github.com/saravenpi/haggle/internal/models"

// Pager loads history older than what the Store holds, one page at a time.
type Pager struct {
	store     *Store
	pageSize  int
	threshold int

	loading   bool
	exhausted bool
}

func NewPager(store *Store, pageSize, threshold int) *Pager {
	return &Pager{store: store, pageSize: pageSize, threshold: threshold}
}

func (p *Pager) PageSize() int { return p.pageSize }
func (p *Pager) Loading() bool { return p.loading }
func (p *Pager) Exhausted() bool { return p.exhausted }

// NearTop reports whether a view scrolled to offset rows from the top should load more.
func (p *Pager) NearTop(offset int) bool {
	return offset <= p.threshold
}

// Begin claims the next page. It returns the cursor (oldest held id) and false when a
// load is already running, history is exhausted, or there is nothing to page from.
func (p *Pager) Begin() (int64, bool) {
	if p.loading || p.exhausted {
		return 0, false
	}
	before, ok := p.store.OldestID()
	if !ok {
		return 0, false
	}
	p.loading = true
	return before, true
}

// Complete applies a page fetched with cursor before and returns how many messages were
// added. A page that adds nothing marks history as exhausted; a failed one just releases
// the claim.
func (p *Pager) Complete(before int64, older []models.Message, err error) int {
	p.loading = false
	if err != nil {
		return 0
	}
	if len(older) == 0 {
		p.exhausted = true
		return 0
	}

	page := make([]models.Message, 0, len(older))
	for _, m := range older {
		if m.ID < before {
			page = append(page, m)
		}
	}
	added := p.store.Prepend(page)
	if added == 0 {
		p.exhausted = true
	}
	return added
}

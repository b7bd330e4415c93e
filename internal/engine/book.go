package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/google/btree"
)

// quantityEpsilon absorbs float residue when a fill consumes a leg exactly.
const quantityEpsilon = 1e-12

// bookEntry represents a single offer resting on one side of the book.
type bookEntry struct {
	Price float64
	ID    int64
	Offer *domain.Offer
}

// buyLess orders the BUY side: price descending, then id ascending.
// Min() returns the highest bid, earliest first.
func buyLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.ID < b.ID
}

// sellLess orders the SELL side: price ascending, then id ascending.
func sellLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ID < b.ID
}

// idLess orders the active index. Ids are allocated monotonically, so id
// order is insertion order.
func idLess(a, b bookEntry) bool {
	return a.ID < b.ID
}

// OfferBook holds every offer posted to the pool. Active offers are indexed
// three ways: by insertion order and per side by price. Terminal offers stay
// in the id map for reads but are excluded from every index.
//
// All operations take a single mutex; MatchCandidates is O(buys × sells) in
// the worst case because its output can be that large. Stats only walks the
// side indices; terminal offers are counted as they leave them.
type OfferBook struct {
	mu        sync.Mutex
	nextID    int64
	offers    map[int64]*domain.Offer
	active    *btree.BTreeG[bookEntry]
	buys      *btree.BTreeG[bookEntry]
	sells     *btree.BTreeG[bookEntry]
	completed int
	cancelled int
	now       func() time.Time
}

// NewOfferBook creates an empty book. The first id allocated is 1.
func NewOfferBook() *OfferBook {
	const degree = 32
	return &OfferBook{
		nextID: 1,
		offers: make(map[int64]*domain.Offer),
		active: btree.NewG[bookEntry](degree, idLess),
		buys:   btree.NewG[bookEntry](degree, buyLess),
		sells:  btree.NewG[bookEntry](degree, sellLess),
		now:    time.Now,
	}
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Post validates and rests a new ACTIVE offer, returning its id.
func (b *OfferBook) Post(side domain.Side, quantity, price float64, owner string) (int64, error) {
	if !side.Valid() {
		return 0, fmt.Errorf("%w: side must be BUY or SELL", domain.ErrInvalidOrder)
	}
	if !validAmount(quantity) {
		return 0, fmt.Errorf("%w: quantity must be a positive number", domain.ErrInvalidOrder)
	}
	if !validAmount(price) {
		return 0, fmt.Errorf("%w: price must be a positive number", domain.ErrInvalidOrder)
	}
	if owner == "" {
		owner = domain.DefaultOwner
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	offer := &domain.Offer{
		ID:               b.nextID,
		Side:             side,
		Quantity:         quantity,
		OriginalQuantity: quantity,
		Price:            price,
		Notional:         quantity * price,
		Owner:            owner,
		Status:           domain.OfferStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.nextID++

	b.offers[offer.ID] = offer
	b.insertActive(offer)
	return offer.ID, nil
}

func (b *OfferBook) insertActive(o *domain.Offer) {
	e := bookEntry{Price: o.Price, ID: o.ID, Offer: o}
	b.active.ReplaceOrInsert(e)
	if o.Side == domain.SideBuy {
		b.buys.ReplaceOrInsert(e)
	} else {
		b.sells.ReplaceOrInsert(e)
	}
}

func (b *OfferBook) removeActive(o *domain.Offer) {
	e := bookEntry{Price: o.Price, ID: o.ID, Offer: o}
	b.active.Delete(e)
	if o.Side == domain.SideBuy {
		b.buys.Delete(e)
	} else {
		b.sells.Delete(e)
	}
}

// Cancel moves an ACTIVE offer to CANCELLED. It returns false for unknown
// ids and for offers that are already terminal.
func (b *OfferBook) Cancel(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.offers[id]
	if !ok || !o.IsActive() {
		return false
	}
	o.Status = domain.OfferStatusCancelled
	o.UpdatedAt = b.now()
	b.removeActive(o)
	b.cancelled++
	return true
}

// Get returns a copy of the offer with the given id, terminal or not.
func (b *OfferBook) Get(id int64) (domain.Offer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.offers[id]
	if !ok {
		return domain.Offer{}, false
	}
	return *o, true
}

// ListActive returns copies of the ACTIVE offers in insertion order. An
// empty side returns both sides.
func (b *OfferBook) ListActive(side domain.Side) []domain.Offer {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Offer, 0, b.active.Len())
	b.active.Ascend(func(e bookEntry) bool {
		if side == "" || e.Offer.Side == side {
			out = append(out, *e.Offer)
		}
		return true
	})
	return out
}

// MatchCandidates lists every crossing (buy, sell) pair without mutating
// the book. Buys are visited best price first, and for each buy the sells
// best price first; the inner walk stops at the first sell priced above the
// buy because every later sell is priced higher still. Each candidate uses
// the legs' full remaining quantities, so an offer may appear many times.
func (b *OfferBook) MatchCandidates() []domain.Match {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var out []domain.Match
	b.buys.Ascend(func(buy bookEntry) bool {
		b.sells.Ascend(func(sell bookEntry) bool {
			if sell.Price > buy.Price {
				return false
			}
			qty := math.Min(buy.Offer.Quantity, sell.Offer.Quantity)
			price := (buy.Price + sell.Price) / 2
			out = append(out, domain.Match{
				BuyID:     buy.ID,
				SellID:    sell.ID,
				Quantity:  qty,
				Price:     price,
				BuyPrice:  buy.Price,
				SellPrice: sell.Price,
				Spread:    buy.Price - sell.Price,
				Notional:  qty * price,
				Timestamp: now,
			})
			return true
		})
		return true
	})
	return out
}

// Execute fills quantity against both legs at the agreed price. It fails
// closed: nothing changes unless both offers exist, are ACTIVE, sit on the
// expected sides, and quantity is positive. A leg asked to fill more than it
// holds is clamped to zero and completes.
func (b *OfferBook) Execute(buyID, sellID int64, quantity, price float64) (domain.Match, bool) {
	if !validAmount(quantity) {
		return domain.Match{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	buy, ok := b.offers[buyID]
	if !ok || !buy.IsActive() || buy.Side != domain.SideBuy {
		return domain.Match{}, false
	}
	sell, ok := b.offers[sellID]
	if !ok || !sell.IsActive() || sell.Side != domain.SideSell {
		return domain.Match{}, false
	}

	now := b.now()
	b.fill(buy, quantity, now)
	b.fill(sell, quantity, now)

	return domain.Match{
		BuyID:     buyID,
		SellID:    sellID,
		Quantity:  quantity,
		Price:     price,
		BuyPrice:  buy.Price,
		SellPrice: sell.Price,
		Spread:    buy.Price - sell.Price,
		Notional:  quantity * price,
		Timestamp: now,
	}, true
}

func (b *OfferBook) fill(o *domain.Offer, qty float64, now time.Time) {
	o.Quantity -= qty
	if o.Quantity <= quantityEpsilon {
		o.Quantity = 0
	}
	o.Notional = o.Quantity * o.Price
	o.UpdatedAt = now
	if o.Quantity == 0 {
		o.Status = domain.OfferStatusCompleted
		b.removeActive(o)
		b.completed++
	}
}

// Stats aggregates the book. Prices and volumes cover ACTIVE offers only.
func (b *OfferBook) Stats() domain.PoolStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := domain.PoolStats{
		CompletedCount: b.completed,
		CancelledCount: b.cancelled,
		BuyCount:       b.buys.Len(),
		SellCount:      b.sells.Len(),
	}
	s.TotalActive = s.BuyCount + s.SellCount

	var buyPriceSum, sellPriceSum float64
	b.buys.Ascend(func(e bookEntry) bool {
		s.BuyVolume += e.Offer.Quantity
		buyPriceSum += e.Price
		return true
	})
	b.sells.Ascend(func(e bookEntry) bool {
		s.SellVolume += e.Offer.Quantity
		sellPriceSum += e.Price
		return true
	})

	if s.BuyCount > 0 {
		s.AvgBuyPrice = buyPriceSum / float64(s.BuyCount)
		best, _ := b.buys.Min()
		s.HighestBuyPrice = best.Price
	}
	if s.SellCount > 0 {
		s.AvgSellPrice = sellPriceSum / float64(s.SellCount)
		best, _ := b.sells.Min()
		s.LowestSellPrice = best.Price
	}
	return s
}

// Reset drops every offer. The id counter keeps counting so ids are never
// handed out twice.
func (b *OfferBook) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.offers = make(map[int64]*domain.Offer)
	b.active.Clear(false)
	b.buys.Clear(false)
	b.sells.Clear(false)
	b.completed = 0
	b.cancelled = 0
}

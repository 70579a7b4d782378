package simulation

// OrderInTransit is a replenishment order that has been placed but not yet
// delivered to the hub.
type OrderInTransit struct {
	QuantityTM   float64
	LeadTimeDays float64
	CreatedDay   float64
}

// DailyRecord captures the state observed by the demand process on one
// simulated day. Values are raw (unrounded); rounding happens only at the
// KPI boundary. The JSON tags define the exported time-series format.
type DailyRecord struct {
	Day              int     `json:"day"`
	InventoryTM      float64 `json:"inventory"`
	DemandTM         float64 `json:"demand"`
	SatisfiedTM      float64 `json:"satisfied_demand"`
	SupplyReceivedTM float64 `json:"supply_received"`
	Stockout         bool    `json:"stockout"`
	RouteBlocked     bool    `json:"route_blocked"`
	PendingOrders    int     `json:"pending_orders"`
	AutonomyDays     float64 `json:"autonomy_days"`
}

// Container is the hub storage tank. The level is invariant-bounded to
// [0, CapacityTM]: dispatches clip to the available level and receipts
// clip to the remaining headroom.
type Container struct {
	CapacityTM        float64
	TotalReceivedTM   float64
	TotalDispatchedTM float64

	level float64
}

func NewContainer(capacityTM, initialTM float64) *Container {
	return &Container{CapacityTM: capacityTM, level: initialTM}
}

func (c *Container) Level() float64 { return c.level }

// Dispatch serves demand from the tank and returns the delivered amount,
// which is the full demand when the level covers it and the remaining
// level otherwise.
func (c *Container) Dispatch(demandTM float64) float64 {
	delivered := demandTM
	if c.level < demandTM {
		delivered = c.level
	}
	c.level -= delivered
	c.TotalDispatchedTM += delivered
	return delivered
}

// Receive adds a delivery to the tank, clipped to the remaining headroom,
// and returns the amount actually stored. Only the stored amount counts
// toward TotalReceivedTM so that level accounting stays conservative.
func (c *Container) Receive(quantityTM float64) float64 {
	delivered := quantityTM
	if headroom := c.CapacityTM - c.level; delivered > headroom {
		delivered = headroom
	}
	if delivered < 0 {
		delivered = 0
	}
	c.level += delivered
	c.TotalReceivedTM += delivered
	return delivered
}

// Route is the single supply corridor into the hub. Blockage state is
// cleared lazily: IsOperational mutates, Blocked does not. A new blockage
// overwrites the unblock time rather than extending it, and overlapping
// blockages each count their full duration in TotalBlockedDays.
type Route struct {
	NominalLeadTimeDays float64
	TotalDisruptions    int
	TotalBlockedDays    float64

	blocked     bool
	unblockTime float64
}

func NewRoute(nominalLeadTimeDays float64) *Route {
	return &Route{NominalLeadTimeDays: nominalLeadTimeDays}
}

// IsOperational reports whether orders may transit the route, clearing an
// expired blockage as a side effect.
func (r *Route) IsOperational(now float64) bool {
	if r.blocked && now >= r.unblockTime {
		r.blocked = false
	}
	return !r.blocked
}

// Blocked reports the blockage state at the given time without mutating it.
func (r *Route) Blocked(now float64) bool {
	return r.blocked && now < r.unblockTime
}

func (r *Route) Block(durationDays, now float64) {
	r.blocked = true
	r.unblockTime = now + durationDays
	r.TotalDisruptions++
	r.TotalBlockedDays += durationDays
}

// LeadTime returns the effective lead time for an order placed now: the
// nominal transit time plus whatever remains of an active blockage.
func (r *Route) LeadTime(now float64) float64 {
	if r.blocked {
		remaining := r.unblockTime - now
		if remaining > 0 {
			return r.NominalLeadTimeDays + remaining
		}
	}
	return r.NominalLeadTimeDays
}

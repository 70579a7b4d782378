package simulation

import (
	"math"
	"math/rand/v2"
)

// Simulator advances a single GLP hub through its planning horizon one
// event at a time. Three recurring processes drive it: daily demand
// dispatch, a daily reorder check, and a Poisson stream of route
// disruptions. All randomness flows through one seeded generator, so the
// interleaving fixed by the event queue makes every run reproducible.
type Simulator struct {
	cfg Config
	rng *rand.Rand

	demandNoise   Normal
	disruptionGap Exponential

	container *Container
	route     *Route

	ordersInTransit []*OrderInTransit
	records         []DailyRecord

	totalDemandTM     float64
	satisfiedDemandTM float64

	queue   eventQueue
	nextSeq uint64
	now     float64
	horizon float64
}

// NewSimulator wires a simulator for the given configuration. The caller
// is expected to have validated cfg.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{
		cfg:         cfg,
		rng:         NewRand(cfg.Seed),
		demandNoise: Normal{Mu: 1, Sigma: cfg.DemandVariability},
		container:   NewContainer(cfg.CapacityTM, cfg.InitialInventoryTM),
		route:       NewRoute(cfg.NominalLeadTimeDays),
		horizon:     float64(cfg.SimulationDays),
	}
}

// Run executes the simulation until the horizon. Events scheduled at or
// beyond the horizon never fire, matching a horizon-exclusive clock. Days
// are numbered from 1, so a full run yields records for days 1..N.
func (s *Simulator) Run() {
	s.schedule(0, func() { s.demandDay(1) })
	s.schedule(0, s.reorderCheck)
	s.schedule(0, s.startDisruptions)

	for s.queue.Len() > 0 {
		ev := s.queue.pop()
		if ev.time >= s.horizon {
			break
		}
		s.now = ev.time
		ev.fire()
	}
}

// Records returns the daily series in chronological order.
func (s *Simulator) Records() []DailyRecord { return s.records }

func (s *Simulator) schedule(at float64, fire func()) {
	s.queue.push(&event{time: at, seq: s.nextSeq, fire: fire})
	s.nextSeq++
}

// dailyDemand draws the demand for one day: the base rate shaped by a
// sinusoidal winter peak and multiplicative Gaussian noise, floored at 0.
func (s *Simulator) dailyDemand(day int) float64 {
	seasonal := 1.0
	if s.cfg.UseSeasonality {
		phase := 2 * math.Pi * float64(day-s.cfg.PeakWinterDay) / 365.0
		seasonal = 1.0 + s.cfg.SeasonalAmplitude*math.Sin(phase)
	}
	demand := s.cfg.BaseDailyDemandTM * seasonal * s.demandNoise.Sample(s.rng)
	if demand < 0 {
		return 0
	}
	return demand
}

func (s *Simulator) demandDay(day int) {
	demand := s.dailyDemand(day)
	dispatched := s.container.Dispatch(demand)
	s.totalDemandTM += demand
	s.satisfiedDemandTM += dispatched

	inv := s.container.Level()
	autonomy := 0.0
	if demand > 0 {
		autonomy = inv / demand
	}

	s.records = append(s.records, DailyRecord{
		Day:           day,
		InventoryTM:   inv,
		DemandTM:      demand,
		SatisfiedTM:   dispatched,
		Stockout:      dispatched < demand,
		RouteBlocked:  s.route.Blocked(s.now),
		PendingOrders: len(s.ordersInTransit),
		AutonomyDays:  autonomy,
	})

	s.schedule(s.now+1, func() { s.demandDay(day + 1) })
}

func (s *Simulator) inventoryPosition() float64 {
	position := s.container.Level()
	for _, o := range s.ordersInTransit {
		position += o.QuantityTM
	}
	return position
}

// orderQuantity sizes a replenishment to cover expected demand over the
// effective lead time plus the safety margin, clamped to the headroom
// left in the tank.
func (s *Simulator) orderQuantity() float64 {
	leadDemand := s.cfg.BaseDailyDemandTM * s.route.LeadTime(s.now)
	q := leadDemand * (1 + SafetyMargin)
	if headroom := s.cfg.CapacityTM - s.container.Level(); q > headroom {
		q = headroom
	}
	if q < 0 {
		return 0
	}
	return q
}

// reorderCheck runs once per day. An order is placed only when the
// inventory position has fallen to the reorder point, fewer than
// MaxConcurrentOrders are in transit, and the route is open. The route
// check is intentionally last: it clears expired blockages, and the
// short-circuit keeps that mutation from happening on days when the
// position alone rules an order out.
func (s *Simulator) reorderCheck() {
	if s.inventoryPosition() <= s.cfg.ReorderPointTM &&
		len(s.ordersInTransit) < MaxConcurrentOrders &&
		s.route.IsOperational(s.now) {
		if q := s.orderQuantity(); q > 0 {
			order := &OrderInTransit{
				QuantityTM:   q,
				LeadTimeDays: s.route.LeadTime(s.now),
				CreatedDay:   s.now,
			}
			s.ordersInTransit = append(s.ordersInTransit, order)
			s.schedule(s.now+order.LeadTimeDays, func() { s.deliver(order) })
		}
	}
	s.schedule(s.now+1, s.reorderCheck)
}

// deliver lands an order: the tank takes what fits, the delivered amount
// is attributed to the most recent daily record, and the order leaves the
// in-transit list.
func (s *Simulator) deliver(order *OrderInTransit) {
	delivered := s.container.Receive(order.QuantityTM)
	if n := len(s.records); n > 0 {
		s.records[n-1].SupplyReceivedTM += delivered
	}
	for i, o := range s.ordersInTransit {
		if o == order {
			s.ordersInTransit = append(s.ordersInTransit[:i], s.ordersInTransit[i+1:]...)
			break
		}
	}
}

// startDisruptions arms the Poisson disruption stream. A non-positive
// rate or max duration disables disruptions entirely.
func (s *Simulator) startDisruptions() {
	if s.cfg.DisruptionMaxDays <= 0 || s.cfg.AnnualDisruptionRate <= 0 {
		return
	}
	s.disruptionGap = Exponential{Mean: 365.0 / s.cfg.AnnualDisruptionRate}
	s.scheduleNextDisruption()
}

func (s *Simulator) scheduleNextDisruption() {
	gap := s.disruptionGap.Sample(s.rng)
	s.schedule(s.now+gap, s.disruptionArrival)
}

func (s *Simulator) disruptionArrival() {
	duration := s.cfg.DisruptionMaxDays
	if !(s.cfg.DisruptionMinDays == s.cfg.DisruptionModeDays &&
		s.cfg.DisruptionModeDays == s.cfg.DisruptionMaxDays) {
		duration = Triangular{
			Min:  s.cfg.DisruptionMinDays,
			Mode: s.cfg.DisruptionModeDays,
			Max:  s.cfg.DisruptionMaxDays,
		}.Sample(s.rng)
	}
	s.route.Block(duration, s.now)
	s.scheduleNextDisruption()
}

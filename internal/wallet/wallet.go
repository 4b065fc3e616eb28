package wallet

import "errors"

var (
	ErrInsufficientFunds = errors.New("wallet balance too low")
	ErrInvalidUnits      = errors.New("units must be a positive integer")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnknownChannel    = errors.New("unknown credit channel")
	ErrAutoSpendDisabled = errors.New("credit bucket empty and auto-spend is off")
)

// Channel is one of the fixed usage channels credits can be bought for.
type Channel string

const (
	ChannelScans Channel = "scans"
	ChannelVoice Channel = "voice"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelLeads Channel = "leads"
)

// Rate is the published price of one unit on a channel.
type Rate struct {
	CentsPerUnit int64  `json:"cents_per_unit"`
	Unit         string `json:"unit"`
}

// Rates is the published rate card. The channel set is closed.
var Rates = map[Channel]Rate{
	ChannelScans: {CentsPerUnit: 50, Unit: "scan"},
	ChannelVoice: {CentsPerUnit: 20, Unit: "minute"},
	ChannelSMS:   {CentsPerUnit: 8, Unit: "message"},
	ChannelEmail: {CentsPerUnit: 2, Unit: "email"},
	ChannelLeads: {CentsPerUnit: 2000, Unit: "lead"},
}

// PointsPerDollar is the fixed exchange rate from reward points.
const PointsPerDollar = 25

// State holds one account's wallet. Balance is integer cents; credit
// buckets are whole pre-purchased units per channel. Mutations are
// synchronous and single-writer, exactly like the dashboard's
// event-dispatch model; there is no transactional guarantee.
type State struct {
	BalanceCents  int64            `json:"balance_cents"`
	CreditBuckets map[Channel]int  `json:"credit_buckets"`
	AutoSpend     map[Channel]bool `json:"auto_spend"`
}

// NewState returns the default wallet created lazily on first read.
func NewState() *State {
	return &State{
		CreditBuckets: map[Channel]int{},
		AutoSpend:     map[Channel]bool{},
	}
}

// Normalize heals a wallet loaded from storage.
func (s *State) Normalize() {
	if s.BalanceCents < 0 {
		s.BalanceCents = 0
	}
	if s.CreditBuckets == nil {
		s.CreditBuckets = map[Channel]int{}
	}
	if s.AutoSpend == nil {
		s.AutoSpend = map[Channel]bool{}
	}
	for ch, units := range s.CreditBuckets {
		if units < 0 {
			s.CreditBuckets[ch] = 0
		}
	}
}

// RequiredPoints is the point cost of buying units on a channel:
// ceil(unitCostDollars * PointsPerDollar * units).
func RequiredPoints(ch Channel, units int) (int, error) {
	rate, ok := Rates[ch]
	if !ok {
		return 0, ErrUnknownChannel
	}
	if units <= 0 {
		return 0, ErrInvalidUnits
	}
	cents := rate.CentsPerUnit * int64(units) * PointsPerDollar
	return int((cents + 99) / 100), nil
}

// Allocate buys units from the dollar balance at the published rate.
// On failure nothing changes.
func (s *State) Allocate(ch Channel, units int) error {
	rate, ok := Rates[ch]
	if !ok {
		return ErrUnknownChannel
	}
	if units <= 0 {
		return ErrInvalidUnits
	}
	cost := rate.CentsPerUnit * int64(units)
	if s.BalanceCents < cost {
		return ErrInsufficientFunds
	}
	s.BalanceCents -= cost
	s.CreditBuckets[ch] += units
	return nil
}

// CreditBucket adds pre-paid units without touching the balance
// (point exchanges and webhook grants land here).
func (s *State) CreditBucket(ch Channel, units int) error {
	if _, ok := Rates[ch]; !ok {
		return ErrUnknownChannel
	}
	if units <= 0 {
		return ErrInvalidUnits
	}
	s.CreditBuckets[ch] += units
	return nil
}

// Spend consumes units, bucket first. A shortfall is auto-debited from
// the wallet at the published rate only when auto-spend is on for the
// channel. All checks happen before any mutation; the balance can
// never go negative.
func (s *State) Spend(ch Channel, units int) (fromBucket int, debitedCents int64, err error) {
	rate, ok := Rates[ch]
	if !ok {
		return 0, 0, ErrUnknownChannel
	}
	if units <= 0 {
		return 0, 0, ErrInvalidUnits
	}

	fromBucket = units
	if have := s.CreditBuckets[ch]; have < units {
		fromBucket = have
	}
	shortfall := units - fromBucket
	if shortfall > 0 {
		if !s.AutoSpend[ch] {
			return 0, 0, ErrAutoSpendDisabled
		}
		debitedCents = rate.CentsPerUnit * int64(shortfall)
		if s.BalanceCents < debitedCents {
			return 0, 0, ErrInsufficientFunds
		}
	}

	s.CreditBuckets[ch] -= fromBucket
	s.BalanceCents -= debitedCents
	return fromBucket, debitedCents, nil
}

// SetAutoSpend flips the per-channel auto-spend rule.
func (s *State) SetAutoSpend(ch Channel, enabled bool) error {
	if _, ok := Rates[ch]; !ok {
		return ErrUnknownChannel
	}
	s.AutoSpend[ch] = enabled
	return nil
}

// Deposit credits the dollar balance (Stripe webhook path).
func (s *State) Deposit(cents int64) error {
	if cents <= 0 {
		return ErrInvalidAmount
	}
	s.BalanceCents += cents
	return nil
}

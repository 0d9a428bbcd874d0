package domain

import "time"

// Coordinates is a lon/lat point. Stored as a WKB point in Postgres and
// mapped to/from this plain value object at the repository boundary.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// MobileMoneyAccount is one payout destination on a Driver.
type MobileMoneyAccount struct {
	Provider string `json:"provider"`
	Number   string `json:"number"`
	Status   string `json:"status"` // active | inactive
}

// Driver is the dispatchable unit of the assignment engine.
type Driver struct {
	ID              string                `json:"id"`
	UserID          string                `json:"user_id"`
	CompanyID       *string               `json:"company_id,omitempty"`
	LatestStatus    string                `json:"latest_status"`
	CurrentLocation *Coordinates          `json:"current_location,omitempty"`
	AverageRating   float64               `json:"average_rating"`
	IsValidDriver   bool                  `json:"is_valid_driver"`
	MobileMoney     []MobileMoneyAccount  `json:"mobile_money"`
	PushToken       *string               `json:"push_token,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ActiveMobileMoneyAccount returns the first account with status=active,
// or nil if the driver has none.
func (d *Driver) ActiveMobileMoneyAccount() *MobileMoneyAccount {
	for i := range d.MobileMoney {
		if d.MobileMoney[i].Status == "active" {
			return &d.MobileMoney[i]
		}
	}
	return nil
}

// DriverStatusLog is an append-only record of a Driver's status history.
// Invariant: no two consecutive entries for the same driver share a status.
type DriverStatusLog struct {
	ID        string            `json:"id"`
	DriverID  string            `json:"driver_id"`
	Status    string            `json:"status"`
	ChangedAt time.Time         `json:"changed_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AvailabilityRule is a recurring weekly working-hours window.
type AvailabilityRule struct {
	ID         string `json:"id"`
	DriverID   string `json:"driver_id"`
	DayOfWeek  int    `json:"day_of_week"` // 0 = Sunday
	StartTime  string `json:"start_time"`  // HH:MM:SS, UTC
	EndTime    string `json:"end_time"`
	IsActive   bool   `json:"is_active"`
}

// AvailabilityException overrides a rule for a single date.
type AvailabilityException struct {
	ID                    string  `json:"id"`
	DriverID              string  `json:"driver_id"`
	Date                  string  `json:"date"` // YYYY-MM-DD, UTC
	IsUnavailableAllDay   bool    `json:"is_unavailable_all_day"`
	UnavailableStartTime  *string `json:"unavailable_start_time,omitempty"`
	UnavailableEndTime    *string `json:"unavailable_end_time,omitempty"`
	Reason                *string `json:"reason,omitempty"`
}

// PackageItem describes one parcel within an Order, as consumed by pricing.
type PackageItem struct {
	WeightG        *float64 `json:"weight_g,omitempty"`
	DepthCM        *float64 `json:"depth_cm,omitempty"`
	WidthCM        *float64 `json:"width_cm,omitempty"`
	HeightCM       *float64 `json:"height_cm,omitempty"`
	Quantity       int      `json:"quantity"`
	MentionWarning *string  `json:"mention_warning,omitempty"`
}

// WaypointSummaryItem is one ordered stop of an Order's mission.
type WaypointSummaryItem struct {
	Sequence         int          `json:"sequence"`
	Type             string       `json:"type"` // pickup | delivery
	AddressID        string       `json:"address_id"`
	Coordinates      Coordinates  `json:"coordinates"`
	ConfirmationCode string       `json:"-"` // never serialized, never logged
	Status           string       `json:"status"`
	StartAt          *time.Time   `json:"start_at,omitempty"`
	EndAt            *time.Time   `json:"end_at,omitempty"`
	PhotoURLs        []string     `json:"photo_urls,omitempty"`
	Name             *string      `json:"name,omitempty"`
	IsMandatory      bool         `json:"is_mandatory"`
	MessageIssue     *string      `json:"message_issue,omitempty"`
}

// Order is a multi-stop delivery order, the unit the Assignment Engine and
// Mission State Machine operate on.
type Order struct {
	ID                        string                 `json:"id"`
	ClientID                  string                 `json:"client_id"`
	DriverID                  *string                `json:"driver_id,omitempty"`
	Priority                  string                 `json:"priority"` // low | med | high
	Remuneration              int64                  `json:"remuneration"`
	ClientFee                 int64                  `json:"client_fee"`
	Currency                  string                 `json:"currency"`
	PickupAddressID           string                 `json:"pickup_address_id"`
	DeliveryAddressID         string                 `json:"delivery_address_id"`
	Note                      *string                `json:"note,omitempty"`
	AssignmentAttemptCount    int                    `json:"assignment_attempt_count"`
	CalculationEngine         string                 `json:"calculation_engine"`
	OfferedDriverID           *string                `json:"offered_driver_id,omitempty"`
	OfferExpiresAt            *time.Time             `json:"offer_expires_at,omitempty"`
	DeliveryDate              time.Time              `json:"delivery_date"`
	DeliveryDateEstimation    *time.Time             `json:"delivery_date_estimation,omitempty"`
	CancellationReasonCode    *string                `json:"cancellation_reason_code,omitempty"`
	FailureReasonCode         *string                `json:"failure_reason_code,omitempty"`
	WaypointsSummary          []WaypointSummaryItem  `json:"waypoints_summary"`
	Packages                  []PackageItem          `json:"packages,omitempty"`
	CompanyID                 *string                `json:"company_id,omitempty"`
	CreatedAt                 time.Time              `json:"created_at"`
	UpdatedAt                 time.Time              `json:"updated_at"`
}

// DerivedStatus computes the Order's single current status from its
// mutually-exclusive field set.
func (o *Order) DerivedStatus() string {
	if o.CancellationReasonCode != nil {
		return "CANCELLED"
	}
	if o.FailureReasonCode != nil && o.DriverID == nil {
		return "FAILED"
	}
	if o.DriverID != nil {
		if o.allWaypointsTerminal() {
			return o.terminalMissionStatus()
		}
		return "ACCEPTED"
	}
	if o.OfferedDriverID != nil {
		return "OFFERED"
	}
	return "PENDING"
}

func (o *Order) allWaypointsTerminal() bool {
	for _, w := range o.WaypointsSummary {
		switch w.Status {
		case "completed", "failed", "skipped":
			continue
		default:
			return false
		}
	}
	return len(o.WaypointsSummary) > 0
}

func (o *Order) terminalMissionStatus() string {
	completed, failed := 0, 0
	for _, w := range o.WaypointsSummary {
		switch w.Status {
		case "completed":
			completed++
		case "failed":
			failed++
		}
	}
	switch {
	case failed == 0:
		return "SUCCESS"
	case completed > 0:
		return "PARTIALLY_COMPLETED"
	default:
		return "FAILED"
	}
}

// Maneuver is one turn-by-turn instruction within an OrderRouteLeg.
type Maneuver struct {
	Instruction string  `json:"instruction"`
	DistanceM   float64 `json:"distance_m"`
	DurationS   float64 `json:"duration_s"`
}

// OrderRouteLeg is one routed segment between consecutive waypoints.
type OrderRouteLeg struct {
	OrderID         string       `json:"order_id"`
	LegSequence     int          `json:"leg_sequence"`
	StartAddressID  *string      `json:"start_address_id,omitempty"`
	EndAddressID    *string      `json:"end_address_id,omitempty"`
	StartCoordinates Coordinates `json:"start_coordinates"`
	EndCoordinates   Coordinates `json:"end_coordinates"`
	Geometry        string       `json:"geometry"` // encoded polyline, precision 6
	DurationSeconds float64      `json:"duration_seconds"`
	DistanceMeters  float64      `json:"distance_meters"`
	Maneuvers       []Maneuver   `json:"maneuvers,omitempty"`
}

// OrderStatusLog is an append-only audit trail of order-level transitions.
type OrderStatusLog struct {
	ID              string            `json:"id"`
	OrderID         string            `json:"order_id"`
	Status          string            `json:"status"`
	ChangedAt       time.Time         `json:"changed_at"`
	ChangedByUserID *string           `json:"changed_by_user_id,omitempty"`
	CurrentLocation *Coordinates      `json:"current_location,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// HistoryEntry is one status transition recorded on an OrderTransaction.
type HistoryEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderTransaction is the billable record created when a mission completes.
type OrderTransaction struct {
	ID                   string            `json:"id"`
	DriverID             string            `json:"driver_id"`
	OrderID              string            `json:"order_id"`
	CompanyID            *string           `json:"company_id,omitempty"`
	Type                 string            `json:"type"` // driver_payment | withdrawal | penalty | bonus
	PaymentMethod        string            `json:"payment_method"`
	Amount               int64             `json:"amount"`
	Currency             string            `json:"currency"`
	Status               string            `json:"status"` // pending | success | failed
	TransactionReference *string           `json:"transaction_reference,omitempty"`
	HistoryStatus        []HistoryEntry    `json:"history_status"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	PaymentDate          *time.Time        `json:"payment_date,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

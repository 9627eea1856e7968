package risk

// AuthContext defines a public type used by goAuthFlow APIs.
//
// AuthContext is the typed signal bundle produced by a ContextProvider for one
// authentication request. A nil signal group means the factor is unavailable
// and is excluded from scoring; it is never treated as zero or one.
type AuthContext struct {
	RequestID string

	Device      *DeviceSignals
	Location    *LocationSignals
	Network     *NetworkSignals
	Behavior    *BehaviorSignals
	Temporal    *TemporalSignals
	History     *HistorySignals
	ThreatIntel *ThreatSignals

	// ResourceSensitivity echoes the target resource's sensitivity tier
	// (0-4) into scoring. Negative means unavailable.
	ResourceSensitivity int
}

// DeviceSignals defines a public type used by goAuthFlow APIs.
//
// DeviceSignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DeviceSignals struct {
	TrustScore float64 // 0 untrusted .. 1 fully trusted
	Known      bool
	Changed    bool
}

// LocationSignals defines a public type used by goAuthFlow APIs.
//
// LocationSignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LocationSignals struct {
	AnomalyScore     float64 // 0 expected .. 1 anomalous
	NewCountry       bool
	ImpossibleTravel bool
}

// NetworkSignals defines a public type used by goAuthFlow APIs.
//
// NetworkSignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NetworkSignals struct {
	ReputationScore float64 // 0 clean .. 1 hostile
	Proxy           bool
	Tor             bool
}

// BehaviorSignals defines a public type used by goAuthFlow APIs.
//
// BehaviorSignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BehaviorSignals struct {
	DeviationScore float64 // 0 typical .. 1 anomalous typing/interaction pattern
}

// TemporalSignals defines a public type used by goAuthFlow APIs.
//
// TemporalSignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TemporalSignals struct {
	AnomalyScore float64 // 0 usual hours .. 1 unusual
	OffHours     bool
}

// HistorySignals defines a public type used by goAuthFlow APIs.
//
// HistorySignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistorySignals struct {
	RecentFailures    int
	DaysSinceLastAuth int
}

// ThreatSignals defines a public type used by goAuthFlow APIs.
//
// ThreatSignals instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThreatSignals struct {
	Score            float64 // 0 no intel .. 1 active threat
	KnownCompromised bool
}

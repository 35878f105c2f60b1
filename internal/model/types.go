package model

// Wire types for the route optimization API.

type WindowIn struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type NodeIn struct {
	ID            string    `json:"id"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Demand        []float64 `json:"demand,omitempty"`
	Window        *WindowIn `json:"window,omitempty"`
	ServiceSec    float64   `json:"serviceSec,omitempty"`
	Depot         bool      `json:"depot,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	AllowedDepots []string  `json:"allowedDepots,omitempty"`
}

type VehicleIn struct {
	ID       string    `json:"id"`
	Capacity []float64 `json:"capacity"`
	Count    int       `json:"count"`
	Tags     []string  `json:"tags,omitempty"`
	Depot    string    `json:"depot,omitempty"`
}

// MatrixIn carries explicit travel costs; one slot is a static matrix,
// several make a time-sliced matrix resolved by departure time. When
// absent the server derives Euclidean costs from node coordinates.
type MatrixIn struct {
	SlotSec float64       `json:"slotSec,omitempty"`
	Slots   [][][]float64 `json:"slots"`
}

type InstanceIn struct {
	Name     string      `json:"name,omitempty"`
	Nodes    []NodeIn    `json:"nodes"`
	Vehicles []VehicleIn `json:"vehicles"`
	Matrix   *MatrixIn   `json:"matrix,omitempty"`
}

type InstanceOut struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name,omitempty"`
	Nodes     int    `json:"nodes"`
	Vehicles  int    `json:"vehicles"`
	CreatedAt string `json:"createdAt"`
}

// ModeIn selects hard rejection or a weighted soft penalty for one
// constraint family.
type ModeIn struct {
	Hard   bool    `json:"hard"`
	Weight float64 `json:"weight,omitempty"`
}

type ConstraintsIn struct {
	Enabled         []string `json:"enabled,omitempty"`
	TimeWindow      *ModeIn  `json:"timeWindow,omitempty"`
	Fleet           *ModeIn  `json:"fleet,omitempty"`
	Depot           *ModeIn  `json:"depot,omitempty"`
	Capacity        *ModeIn  `json:"capacity,omitempty"`
	AllowWaiting    *bool    `json:"allowWaiting,omitempty"`
	UnservedPenalty float64  `json:"unservedPenalty,omitempty"`
}

type SAIn struct {
	InitialTemp float64 `json:"initialTemp,omitempty"`
	Cooling     float64 `json:"cooling,omitempty"`
}

type TabuIn struct {
	Tenure     int `json:"tenure,omitempty"`
	Candidates int `json:"candidates,omitempty"`
}

type ALNSIn struct {
	Reward           float64 `json:"reward,omitempty"`
	Decay            float64 `json:"decay,omitempty"`
	RenormalizeEvery int     `json:"renormalizeEvery,omitempty"`
}

type SolveRequest struct {
	InstanceID     string         `json:"instanceId"`
	Metaheuristic  string         `json:"metaheuristic,omitempty"`
	IterationLimit int            `json:"iterationLimit,omitempty"`
	TimeBudgetMs   int            `json:"timeBudgetMs,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
	Runs           int            `json:"runs,omitempty"`
	Async          bool           `json:"async,omitempty"`
	Constraints    *ConstraintsIn `json:"constraints,omitempty"`
	SA             *SAIn          `json:"sa,omitempty"`
	Tabu           *TabuIn        `json:"tabu,omitempty"`
	ALNS           *ALNSIn        `json:"alns,omitempty"`
}

type StopOut struct {
	NodeID     string  `json:"nodeId"`
	ArrivalSec float64 `json:"arrivalSec"`
}

type RouteOut struct {
	VehicleType string    `json:"vehicleType"`
	Depot       string    `json:"depot"`
	Stops       []StopOut `json:"stops"`
	Load        []float64 `json:"load"`
	Distance    float64   `json:"distance"`
	Feasible    bool      `json:"feasible"`
}

type RunOut struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId,omitempty"`
	InstanceID    string     `json:"instanceId"`
	Status        string     `json:"status"` // completed, failed
	Metaheuristic string     `json:"metaheuristic"`
	Seed          int64      `json:"seed"`
	TotalCost     float64    `json:"totalCost"`
	Feasible      bool       `json:"feasible"`
	Iterations    int        `json:"iterations"`
	ElapsedMs     int64      `json:"elapsedMs"`
	Routes        []RouteOut `json:"routes"`
	Unserved      []string   `json:"unserved,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     string     `json:"createdAt"`
}

// BatchOut is returned when a solve request asks for several runs.
type BatchOut struct {
	Runs     []RunOut `json:"runs"`
	Best     string   `json:"best"` // run id of the cheapest result
	MeanCost float64  `json:"meanCost"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"-"`
}

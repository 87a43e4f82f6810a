package report

// Viewer describes who looks at the report.
type Viewer int

const (
	// ViewerSelfClient is a client looking at their own data.
	ViewerSelfClient Viewer = iota
	// ViewerTrainerNoSelection is a trainer who has not picked both a client and a complete date range yet.
	ViewerTrainerNoSelection
	// ViewerTrainerWithSelection is a trainer with a client and a complete date range picked.
	ViewerTrainerWithSelection
)

func (v Viewer) String() string {
	switch v {
	case ViewerSelfClient:
		return "self-client"
	case ViewerTrainerNoSelection:
		return "trainer-no-selection"
	case ViewerTrainerWithSelection:
		return "trainer-with-selection"
	}
	return "unknown"
}

// ViewerFor derives the viewer kind. Clients always see themselves.
func ViewerFor(trainer, userSelected bool, dates DateRange) Viewer {
	switch {
	case !trainer:
		return ViewerSelfClient
	case userSelected && dates.Complete():
		return ViewerTrainerWithSelection
	default:
		return ViewerTrainerNoSelection
	}
}

// Presence tells whether a chart's dataset exists and has data.
type Presence int

const (
	PresenceAbsent Presence = iota
	PresenceEmpty
	PresenceNonEmpty
)

func (p Presence) String() string {
	switch p {
	case PresenceAbsent:
		return "absent"
	case PresenceEmpty:
		return "empty"
	case PresenceNonEmpty:
		return "non-empty"
	}
	return "unknown"
}

// Decision is what a chart area renders.
type Decision int

const (
	// DecisionEmpty renders the "no data" state.
	DecisionEmpty Decision = iota
	// DecisionLive renders the chart from the fetched dataset.
	DecisionLive
	// DecisionPlaceholder renders the chart from fixed sample data.
	DecisionPlaceholder
)

func (d Decision) String() string {
	switch d {
	case DecisionEmpty:
		return "empty"
	case DecisionLive:
		return "live"
	case DecisionPlaceholder:
		return "placeholder"
	}
	return "unknown"
}

// VisibilityInput is everything a visibility decision depends on.
type VisibilityInput struct {
	Viewer   Viewer
	Presence Presence
	Enabled  bool
}

// Resolve decides what a chart area shows. It is total over its input.
//
// A disabled chart is always empty. A trainer without a selection sees the placeholder whatever the data. A client
// sees any dataset the backend sent, even an empty one, while a trainer with a selection only sees non-empty data.
func Resolve(in VisibilityInput) Decision {
	if !in.Enabled {
		return DecisionEmpty
	}
	switch in.Viewer {
	case ViewerTrainerNoSelection:
		return DecisionPlaceholder
	case ViewerSelfClient:
		if in.Presence == PresenceAbsent {
			return DecisionEmpty
		}
		return DecisionLive
	case ViewerTrainerWithSelection:
		if in.Presence == PresenceNonEmpty {
			return DecisionLive
		}
		return DecisionEmpty
	}
	return DecisionEmpty
}

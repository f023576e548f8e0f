package ports

// Recorder counts authorization decisions and workflow outcomes.
type Recorder interface {
	ObserveAccess(kind string, allowed bool)
	ObserveAction(action, outcome string)
}

type NopRecorder struct{}

func (NopRecorder) ObserveAccess(string, bool)    {}
func (NopRecorder) ObserveAction(string, string) {}

package services

// Recorder counts service outcomes. metrics.Metrics satisfies it.
type Recorder interface {
	RecordFavoriteAdd(outcome string)
	RecordUpgrade()
}

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) RecordFavoriteAdd(string) {}
func (NopRecorder) RecordUpgrade()           {}

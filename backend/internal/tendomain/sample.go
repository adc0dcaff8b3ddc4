package tendomain

import "time"

// TensionSample is one point recorded into a location's or relationship's
// history ring buffer for later pattern/anomaly analysis.
type TensionSample struct {
	Timestamp time.Time
	Value     float64
	EventKind EventKind
}

// PredictionOutcome records how a past prediction compared to what actually
// happened, feeding the accuracy ring buffer.
type PredictionOutcome struct {
	PredictedAt   time.Time
	PredictedValue float64
	ActualValue   float64
	HorizonHours  float64
}

// AbsoluteError returns the magnitude of the prediction miss.
func (o PredictionOutcome) AbsoluteError() float64 {
	d := o.PredictedValue - o.ActualValue
	if d < 0 {
		return -d
	}
	return d
}

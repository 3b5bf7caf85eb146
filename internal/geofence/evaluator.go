// Package geofence decides whether a client-reported position falls inside a
// location's tolerance zone. Pure computation, no I/O.
package geofence

import (
	"math"

	"workclock/internal/location"
)

// earthRadiusMeters is the IUGG mean Earth radius. The spherical
// approximation's error is negligible at building-scale geofences.
const earthRadiusMeters = 6371008.8

// Reason explains a rejection. Empty when accepted.
type Reason string

const (
	ReasonLowAccuracy     Reason = "LOW_ACCURACY"
	ReasonOutsideGeofence Reason = "OUTSIDE_GEOFENCE"
)

// Result carries the computed distance and the policy decision.
type Result struct {
	DistanceMeters float64
	Accepted       bool
	Reason         Reason
}

// Policy holds deployment-level fallbacks applied when a location record does
// not carry its own accuracy bound.
type Policy struct {
	// DefaultAccuracyMaxMeters applies when the location's
	// RCPAccuracyMaxMeters is zero.
	DefaultAccuracyMaxMeters float64
	// AllowUnknownAccuracy accepts submissions with no reported accuracy.
	// When false, absent accuracy is treated as worst-case and rejected.
	AllowUnknownAccuracy bool
}

// Evaluator applies the geofence and accuracy policy for one deployment.
type Evaluator struct {
	policy Policy
}

func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate checks a client position against a location's geofence.
// accuracyMeters is nil when the client reported none. The radius boundary is
// inclusive: a distance exactly equal to the radius is accepted.
func (e *Evaluator) Evaluate(loc location.Location, clientLat, clientLng float64, accuracyMeters *float64) Result {
	distance := Haversine(loc.GeoLat, loc.GeoLng, clientLat, clientLng)

	accuracyMax := loc.RCPAccuracyMaxMeters
	if accuracyMax == 0 {
		accuracyMax = e.policy.DefaultAccuracyMaxMeters
	}

	if accuracyMeters == nil {
		if !e.policy.AllowUnknownAccuracy {
			return Result{DistanceMeters: distance, Reason: ReasonLowAccuracy}
		}
	} else if *accuracyMeters > accuracyMax {
		return Result{DistanceMeters: distance, Reason: ReasonLowAccuracy}
	}

	if distance > loc.GeoRadiusMeters {
		return Result{DistanceMeters: distance, Reason: ReasonOutsideGeofence}
	}

	return Result{DistanceMeters: distance, Accepted: true}
}

// Haversine returns the great-circle distance in meters between two WGS-84
// coordinates on a spherical Earth.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

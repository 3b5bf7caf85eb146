package geofence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workclock/internal/location"
)

func floatPtr(f float64) *float64 { return &f }

func warsawOffice() location.Location {
	return location.Location{
		ID:                   "loc-1",
		Name:                 "Warsaw Office",
		GeoLat:               52.2297,
		GeoLng:               21.0122,
		GeoRadiusMeters:      100,
		RCPEnabled:           true,
		RCPAccuracyMaxMeters: 100,
	}
}

func TestHaversine(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.InDelta(t, 0, Haversine(52.2297, 21.0122, 52.2297, 21.0122), 0.001)
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := Haversine(52.2297, 21.0122, 50.0647, 19.9450)
		ba := Haversine(50.0647, 19.9450, 52.2297, 21.0122)
		assert.InDelta(t, ab, ba, 1e-9)
	})

	t.Run("warsaw to krakow roughly 252 km", func(t *testing.T) {
		d := Haversine(52.2297, 21.0122, 50.0647, 19.9450)
		assert.InDelta(t, 252000, d, 3000)
	})

	t.Run("one degree of latitude roughly 111 km", func(t *testing.T) {
		d := Haversine(52.0, 21.0, 53.0, 21.0)
		assert.InDelta(t, 111195, d, 100)
	})
}

func TestEvaluate(t *testing.T) {
	eval := NewEvaluator(Policy{DefaultAccuracyMaxMeters: 100})

	t.Run("client at location center accepted", func(t *testing.T) {
		res := eval.Evaluate(warsawOffice(), 52.2297, 21.0122, floatPtr(30))
		assert.True(t, res.Accepted)
		assert.InDelta(t, 0, res.DistanceMeters, 0.001)
		assert.Empty(t, res.Reason)
	})

	t.Run("client a kilometer away rejected", func(t *testing.T) {
		res := eval.Evaluate(warsawOffice(), 52.2400, 21.0122, floatPtr(30))
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonOutsideGeofence, res.Reason)
		assert.Greater(t, res.DistanceMeters, 1000.0)
	})

	t.Run("distance exactly at radius accepted", func(t *testing.T) {
		loc := warsawOffice()
		clientLat := loc.GeoLat + 0.0008
		d := Haversine(loc.GeoLat, loc.GeoLng, clientLat, loc.GeoLng)
		require.Greater(t, d, 0.0)

		// Pin the radius to the computed distance: inclusive boundary.
		loc.GeoRadiusMeters = d
		res := eval.Evaluate(loc, clientLat, loc.GeoLng, floatPtr(30))
		assert.True(t, res.Accepted)

		// Any shortfall in the radius must reject.
		loc.GeoRadiusMeters = math.Nextafter(d, 0)
		out := eval.Evaluate(loc, clientLat, loc.GeoLng, floatPtr(30))
		assert.False(t, out.Accepted)
		assert.Equal(t, ReasonOutsideGeofence, out.Reason)
	})

	t.Run("accuracy worse than location policy rejected", func(t *testing.T) {
		res := eval.Evaluate(warsawOffice(), 52.2297, 21.0122, floatPtr(150))
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonLowAccuracy, res.Reason)
	})

	t.Run("absent accuracy rejected by default", func(t *testing.T) {
		res := eval.Evaluate(warsawOffice(), 52.2297, 21.0122, nil)
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonLowAccuracy, res.Reason)
	})

	t.Run("absent accuracy accepted when policy allows", func(t *testing.T) {
		lenient := NewEvaluator(Policy{DefaultAccuracyMaxMeters: 100, AllowUnknownAccuracy: true})
		res := lenient.Evaluate(warsawOffice(), 52.2297, 21.0122, nil)
		assert.True(t, res.Accepted)
	})

	t.Run("zero accuracy bound falls back to deployment default", func(t *testing.T) {
		loc := warsawOffice()
		loc.RCPAccuracyMaxMeters = 0
		res := eval.Evaluate(loc, 52.2297, 21.0122, floatPtr(99))
		assert.True(t, res.Accepted)

		res = eval.Evaluate(loc, 52.2297, 21.0122, floatPtr(101))
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonLowAccuracy, res.Reason)
	})
}

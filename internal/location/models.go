package location

// Location is the read-only geodata and RCP configuration record owned by the
// workforce directory. The clock subsystem never mutates it.
type Location struct {
	ID             string
	OrganisationID string
	Name           string
	GeoLat         float64
	GeoLng         float64
	// GeoRadiusMeters is the geofence radius; always > 0 for valid records.
	GeoRadiusMeters float64
	RCPEnabled      bool
	// RCPAccuracyMaxMeters is the worst client-reported GPS accuracy still
	// accepted. Zero means the deployment default applies.
	RCPAccuracyMaxMeters float64
}

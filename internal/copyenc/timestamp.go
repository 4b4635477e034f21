// Package copyenc implements the binary row encoder for PostgreSQL's
// native COPY wire format: the 19-byte stream header, per-row field
// framing, and per-column big-endian encoding, including the Unix-epoch
// to Postgres-epoch timestamp shift.
package copyenc

// Postgres stores timestamps as microseconds since 2000-01-01, not the
// Unix epoch (1970-01-01).
const (
	usecsPerSecond = 1_000_000
	usecsPerDay    = 86_400_000_000
	// unixEpochJulian and postgresEpochJulian are the Julian day numbers
	// of the two epochs; their difference is the fixed day offset
	// applied to every timestamp.
	unixEpochJulian     = 2_440_588
	postgresEpochJulian = 2_451_545
)

// epochOffsetUsec is (unix_epoch_jdate - postgres_epoch_jdate) *
// usecs_per_day, a negative constant since the Postgres epoch is later
// than the Unix epoch.
const epochOffsetUsec = int64(unixEpochJulian-postgresEpochJulian) * usecsPerDay

// TimestampUnit selects which representation an incoming timestamp field
// uses. Exactly one must be configured per deployment.
type TimestampUnit int

const (
	UnitSeconds TimestampUnit = iota
	UnitMicroseconds
	UnitNanoseconds
)

// UnixToPgTimestamp converts unixValue (interpreted per unit) to
// microseconds since the Postgres epoch (2000-01-01).
func UnixToPgTimestamp(unixValue int64, unit TimestampUnit) int64 {
	var usec int64
	switch unit {
	case UnitSeconds:
		usec = unixValue * usecsPerSecond
	case UnitMicroseconds:
		usec = unixValue
	case UnitNanoseconds:
		usec = unixValue / 1000
	}
	return usec + epochOffsetUsec
}

// PgTimestampToUnix is the inverse of UnixToPgTimestamp, used by tests
// to assert the round-trip property.
func PgTimestampToUnix(pgUsec int64, unit TimestampUnit) int64 {
	usec := pgUsec - epochOffsetUsec
	switch unit {
	case UnitSeconds:
		return usec / usecsPerSecond
	case UnitMicroseconds:
		return usec
	case UnitNanoseconds:
		return usec * 1000
	}
	return usec
}

package internaldefs

import (
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Namespace prefixes every exported series.
const Namespace = "gosession"

// CounterDef binds a counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var counterHelp = map[goSession.MetricID]string{
	goSession.MetricSignUpSuccess:         "Accounts created by sign-up.",
	goSession.MetricSignUpFailure:         "Sign-up attempts that failed.",
	goSession.MetricSignUpDuplicate:       "Sign-up attempts rejected because the email is taken.",
	goSession.MetricLoginSuccess:          "Successful logins.",
	goSession.MetricLoginFailure:          "Failed logins.",
	goSession.MetricLoginRateLimited:      "Logins rejected by the login throttle.",
	goSession.MetricRefreshSuccess:        "Refresh token rotations.",
	goSession.MetricRefreshFailure:        "Refresh attempts that failed.",
	goSession.MetricRefreshStale:          "Refresh attempts with a token issued before the current login.",
	goSession.MetricRefreshReuseDetected:  "Refresh tokens presented after they were rotated.",
	goSession.MetricRefreshConflict:       "Refresh rotations that lost a concurrent update.",
	goSession.MetricRefreshRateLimited:    "Refresh attempts rejected by the refresh throttle.",
	goSession.MetricSessionRevoked:        "Credentials revoked after reuse or conflict.",
	goSession.MetricLogout:                "Logouts.",
	goSession.MetricAuthenticateSuccess:   "Authenticated requests.",
	goSession.MetricAuthenticateFailure:   "Requests that failed authentication.",
	goSession.MetricAuthenticateRefreshed: "Requests authenticated by rotating an expired access token.",
	goSession.MetricAuthorizeDenied:       "Requests denied by role checks.",
	goSession.MetricKeyPairGenerated:      "Key pairs generated by login.",
	goSession.MetricPasswordUpgraded:      "Stored password hashes upgraded at login.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{
		ID:   goSession.MetricAuthenticateLatency,
		Name: Namespace + "_" + goSession.MetricAuthenticateLatency.String() + "_seconds",
		Help: "Authenticate latency.",
	},
}

// HistogramBounds are the bucket upper bounds in seconds, ending in +Inf.
var HistogramBounds = buildBounds()

// HistogramBoundSeconds are the finite upper bounds in seconds.
var HistogramBoundSeconds = buildBoundSeconds()

// HistogramBoundSuffix renders HistogramBounds as identifier-safe suffixes.
var HistogramBoundSuffix = buildBoundSuffix()

// BucketCount is the number of latency buckets including +Inf.
const BucketCount = len(goSession.HistogramBounds) + 1

func buildCounterDefs() []CounterDef {
	out := make([]CounterDef, 0, len(counterHelp))
	for _, id := range goSession.MetricIDs() {
		help, ok := counterHelp[id]
		if !ok {
			continue
		}
		out = append(out, CounterDef{
			ID:   id,
			Name: Namespace + "_" + id.String() + "_total",
			Help: help,
		})
	}
	return out
}

func buildBoundSeconds() []float64 {
	out := make([]float64, 0, len(goSession.HistogramBounds))
	for _, b := range goSession.HistogramBounds {
		out = append(out, b.Seconds())
	}
	return out
}

func buildBounds() []string {
	out := make([]string, 0, BucketCount)
	for _, s := range buildBoundSeconds() {
		out = append(out, strconv.FormatFloat(s, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

func buildBoundSuffix() []string {
	bounds := buildBounds()
	out := make([]string, 0, len(bounds))
	for _, b := range bounds {
		if b == "+Inf" {
			out = append(out, "inf")
			continue
		}
		out = append(out, strings.ReplaceAll(b, ".", "_"))
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

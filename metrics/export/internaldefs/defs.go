package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/passport"
)

// Namespace prefixes every exported series.
const Namespace = "passport"

// BucketCount is the number of latency buckets including +Inf.
const BucketCount = len(passport.HistogramBounds) + 1

// CounterDef names one engine counter.
type CounterDef struct {
	ID   passport.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   passport.MetricID
	Name string
	Help string
}

var help = map[passport.MetricID]string{
	passport.MetricLoginSuccess:            "Successful logins.",
	passport.MetricLoginFailure:            "Rejected logins of any reason.",
	passport.MetricLoginUnknownPrincipal:   "Logins naming an unknown user.",
	passport.MetricLoginCredentialMismatch: "Logins with a wrong password.",
	passport.MetricLoginLocked:             "Logins refused because the account is locked.",
	passport.MetricSessionCreated:          "Registered sessions.",
	passport.MetricSessionInvalidated:      "Sessions removed by logout.",
	passport.MetricLogout:                  "Logout requests.",
	passport.MetricAuthenticateSuccess:     "Tokens accepted by Authenticate.",
	passport.MetricAuthenticateFailure:     "Tokens rejected by Authenticate.",
	passport.MetricTokenExpired:            "Tokens rejected as expired.",
	passport.MetricInternalFailure:         "Operations failed by an internal error.",
	passport.MetricLoginLatency:            "Login latency histogram.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: passport.MetricLoginLatency, Name: Namespace + "_login_latency_seconds", Help: help[passport.MetricLoginLatency]},
}

// HistogramBounds are the Prometheus "le" labels, ending with +Inf.
var HistogramBounds = buildBounds()

// HistogramBoundSuffix are HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = buildSuffixes()

func buildCounterDefs() []CounterDef {
	ids := passport.MetricIDs()
	defs := make([]CounterDef, 0, len(ids))
	for _, id := range ids {
		if id == passport.MetricLoginLatency {
			continue
		}
		defs = append(defs, CounterDef{
			ID:   id,
			Name: Namespace + "_" + id.String() + "_total",
			Help: help[id],
		})
	}
	return defs
}

func buildBounds() []string {
	out := make([]string, 0, BucketCount)
	for _, b := range passport.HistogramBounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

func buildSuffixes() []string {
	out := make([]string, 0, BucketCount)
	for _, b := range HistogramBounds {
		if b == "+Inf" {
			out = append(out, "inf")
			continue
		}
		out = append(out, strings.ReplaceAll(b, ".", "_"))
	}
	return out
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}

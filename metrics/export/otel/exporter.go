package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/metrics/export/internaldefs"
	"github.com/MrEthical07/tokengate/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names.
const (
	IssueName         = "tokengate.issue"
	RegisterName      = "tokengate.register"
	LoginName         = "tokengate.login"
	VerifyName        = "tokengate.verify"
	AuthorizeName     = "tokengate.authorize"
	VerifyLatencyName = "tokengate.verify.latency.bucket"
	VerifyCountName   = "tokengate.verify.latency.count"
	AuditDroppedName  = "tokengate.audit.dropped"
)

// Attribute keys. Verify results are "ok" or a token.Kind name.
const (
	OutcomeKey     = attribute.Key("outcome")
	ResultKey      = attribute.Key("result")
	BucketBoundKey = attribute.Key("le")
)

type metricsSource interface {
	MetricsSnapshot() tokengate.MetricsSnapshot
	AuditDropped() uint64
}

// series is one attribute set of a grouped counter, fed by one engine counter.
type series struct {
	id    tokengate.MetricID
	attrs metric.ObserveOption
}

type group struct {
	name   string
	help   string
	unit   string
	series []series
	ins    metric.Int64ObservableCounter
}

func outcome(key attribute.Key, id tokengate.MetricID, value string) series {
	return series{id: id, attrs: metric.WithAttributes(key.String(value))}
}

func verifyGroup() group {
	g := group{
		name:   VerifyName,
		help:   "Token verifications by result; failures carry the verification kind.",
		unit:   "{token}",
		series: []series{outcome(ResultKey, tokengate.MetricVerifySuccess, "ok")},
	}
	ids := map[token.Kind]tokengate.MetricID{
		token.KindFormat:       tokengate.MetricVerifyFormat,
		token.KindDecode:       tokengate.MetricVerifyDecode,
		token.KindAlgorithm:    tokengate.MetricVerifyAlgorithm,
		token.KindSignature:    tokengate.MetricVerifySignature,
		token.KindMissingClaim: tokengate.MetricVerifyMissingClaim,
		token.KindExpired:      tokengate.MetricVerifyExpired,
	}
	for _, k := range token.Kinds {
		g.series = append(g.series, outcome(ResultKey, ids[k], k.String()))
	}
	return g
}

func groups() []group {
	return []group{
		{name: IssueName, help: "Token issue calls by outcome.", unit: "{call}", series: []series{
			outcome(OutcomeKey, tokengate.MetricIssueSuccess, "success"),
			outcome(OutcomeKey, tokengate.MetricIssueFailure, "failure"),
		}},
		{name: RegisterName, help: "Registrations by outcome.", unit: "{call}", series: []series{
			outcome(OutcomeKey, tokengate.MetricRegisterSuccess, "success"),
			outcome(OutcomeKey, tokengate.MetricRegisterDuplicate, "duplicate"),
			outcome(OutcomeKey, tokengate.MetricRegisterFailure, "failure"),
		}},
		{name: LoginName, help: "Login attempts by outcome.", unit: "{call}", series: []series{
			outcome(OutcomeKey, tokengate.MetricLoginSuccess, "success"),
			outcome(OutcomeKey, tokengate.MetricLoginFailure, "failure"),
			outcome(OutcomeKey, tokengate.MetricLoginRateLimited, "rate_limited"),
		}},
		verifyGroup(),
		{name: AuthorizeName, help: "Role checks by outcome.", unit: "{call}", series: []series{
			outcome(OutcomeKey, tokengate.MetricAuthorizeSuccess, "granted"),
			outcome(OutcomeKey, tokengate.MetricAuthorizeForbidden, "forbidden"),
		}},
	}
}

// Exporter publishes engine snapshots as OTel observable instruments. Each engine
// operation is one counter split by an outcome attribute; verify failures are split by
// kind. Values are read from the source inside the meter callback on every collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	groups       []group
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	bucketAttrs  []metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, engine *tokengate.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source, groups: groups()}
	observables := make([]metric.Observable, 0, len(e.groups)+3)

	for i := range e.groups {
		g := &e.groups[i]
		ins, err := meter.Int64ObservableCounter(g.name, metric.WithDescription(g.help), metric.WithUnit(g.unit))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", g.name, err)
		}
		g.ins = ins
		observables = append(observables, ins)
	}

	latency, err := meter.Int64ObservableGauge(VerifyLatencyName,
		metric.WithDescription("Cumulative token verification latency samples at or below le."), metric.WithUnit("{sample}"))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", VerifyLatencyName, err)
	}
	latencyCount, err := meter.Int64ObservableGauge(VerifyCountName,
		metric.WithDescription("Token verification latency samples."), metric.WithUnit("{sample}"))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", VerifyCountName, err)
	}
	e.latency, e.latencyCount = latency, latencyCount
	for _, bound := range internaldefs.HistogramBoundSuffix {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(BucketBoundKey.String(bound)))
	}
	observables = append(observables, latency, latencyCount)

	auditDropped, err := meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp), metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for _, g := range e.groups {
			for _, s := range g.series {
				observer.ObserveInt64(g.ins, int64(snapshot.Counters[s.id]), s.attrs)
			}
		}
	}

	if raw, ok := snapshot.Histograms[tokengate.MetricVerifyLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, attrs := range e.bucketAttrs {
			observer.ObserveInt64(e.latency, int64(cumulative[i]), attrs)
		}
		observer.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

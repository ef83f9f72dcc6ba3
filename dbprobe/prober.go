package dbprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// defaultDiagnosticDatabase is used by the secondary diagnostic when the
// endpoint does not name a database.
var defaultDiagnosticDatabase = map[Kind]string{
	KindMongo: "test",
	KindRedis: "0",
}

// Prober checks database endpoints. It holds only immutable configuration
// and is safe for concurrent use; every Check owns its own session.
type Prober struct {
	cfg config
}

// New creates a Prober. Transports are taken from the registry unless
// overridden with WithTransport. To register the built-in transports:
//
//	import _ "github.com/BigKAA/dbprobe/dbprobe/checks"
func New(opts ...Option) *Prober {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Prober{cfg: cfg}
}

// Check probes one endpoint: validate, connect, liveness command, optional
// secondary diagnostic. It never panics and never returns an error; every
// failure is described by the returned report.
func (p *Prober) Check(ctx context.Context, ep EndpointConfig) HealthReport {
	start := time.Now()
	r := &reportBuilder{
		report: HealthReport{
			Name:       ep.Name,
			Kind:       ep.Kind,
			Target:     Target(ep),
			ObservedAt: p.cfg.now(),
		},
		cfg: ep,
	}
	if r.report.Name == "" {
		r.report.Name = string(ep.Kind)
	}

	p.run(ctx, ep, r)

	r.report.Latency = time.Since(start)
	report := r.report
	p.record(report)
	return report
}

func (p *Prober) run(ctx context.Context, ep EndpointConfig, r *reportBuilder) {
	if err := ep.Validate(); err != nil {
		r.fail(ConfigurationError, "", err)
		return
	}
	timeouts, err := ep.Timeouts()
	if err != nil {
		r.fail(ConfigurationError, "", err)
		return
	}

	transport, ok := p.transport(ep.Kind)
	r.transportAvailable = ok
	if !ok {
		r.fail(ExtensionUnavailable, "", fmt.Errorf("%w: no transport registered for kind %q", ErrTransportUnavailable, ep.Kind))
		return
	}

	if p.cfg.overall > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.overall)
		defer cancel()
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeouts = timeouts.CapTo(time.Until(deadline))
	}

	defer func() {
		if v := recover(); v != nil {
			if r.report.Success {
				r.warn(fmt.Sprintf("unexpected failure after liveness check: transport panic: %s", Scrub(ep, fmt.Sprint(v))))
				return
			}
			r.fail(GeneralError, "unexpected failure", fmt.Errorf("transport panic: %v", v))
		}
	}()

	p.probe(ctx, transport, ep, timeouts, r)
}

// probe runs the connection stages. The session is released on every path
// out of this function, including panics.
func (p *Prober) probe(ctx context.Context, transport Transport, ep EndpointConfig, t Timeouts, r *reportBuilder) {
	connectCtx, cancel := context.WithTimeout(ctx, t.Connect)
	sess, err := transport.Open(connectCtx, ep, t)
	if err != nil {
		r.failStage(connectCtx, "connection failed", err)
		cancel()
		return
	}
	cancel()
	if sess == nil {
		r.fail(GeneralError, "connection failed", errors.New("transport returned no session"))
		return
	}
	defer p.release(ctx, sess, r)

	livenessCtx, cancel := context.WithTimeout(ctx, t.Liveness())
	info, err := sess.Ping(livenessCtx)
	if err != nil {
		r.failStage(livenessCtx, "liveness check failed", err)
		cancel()
		return
	}
	cancel()

	r.succeed(info)

	if !p.cfg.diagnose || !ep.BoolOption(OptDiagnose, true) {
		return
	}
	p.diagnose(ctx, sess, ep, t, r)
}

// diagnose runs the secondary read-only call. Any failure, a panic
// included, becomes a warning; Success is never touched.
func (p *Prober) diagnose(ctx context.Context, sess Session, ep EndpointConfig, t Timeouts, r *reportBuilder) {
	defer func() {
		if v := recover(); v != nil {
			r.warn(fmt.Sprintf("could not access database operations: diagnostic panic: %s", Scrub(ep, fmt.Sprint(v))))
		}
	}()

	db := ep.DatabaseOr(defaultDiagnosticDatabase[ep.Kind])
	diagCtx, cancel := context.WithTimeout(ctx, t.Socket)
	defer cancel()
	summary, err := sess.Diagnose(diagCtx, db)
	if err != nil {
		r.warn(fmt.Sprintf("could not access database operations: %s", Scrub(ep, err.Error())))
		return
	}
	note := "diagnostic call succeeded"
	if db != "" {
		note = fmt.Sprintf("database '%s' is accessible", db)
	}
	if summary != "" {
		note += ": " + summary
	}
	r.note(note)
}

// release closes the session with its own bounded context, so a cancelled
// probe still gets its connection back to the server.
func (p *Prober) release(ctx context.Context, sess Session, r *reportBuilder) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.closeTimeout)
	defer cancel()
	defer func() {
		if v := recover(); v != nil {
			p.cfg.logger.Debug("dbprobe: session close panicked",
				"name", r.report.Name,
				"target", r.report.Target,
				"panic", Scrub(r.cfg, fmt.Sprint(v)))
		}
	}()
	if err := sess.Close(closeCtx); err != nil {
		p.cfg.logger.Debug("dbprobe: session close failed",
			"name", r.report.Name,
			"target", r.report.Target,
			"error", Scrub(r.cfg, err.Error()))
	}
}

func (p *Prober) transport(kind Kind) (Transport, bool) {
	if t, ok := p.cfg.transports[kind]; ok {
		return t, true
	}
	return lookupTransport(kind)
}

func (p *Prober) record(r HealthReport) {
	if p.cfg.metrics != nil {
		p.cfg.metrics.Observe(r)
	}

	attrs := []any{
		"name", r.Name,
		"kind", string(r.Kind),
		"target", r.Target,
		"latency", r.Latency,
	}
	if r.Success {
		if r.ServerVersion != "" {
			attrs = append(attrs, "version", r.ServerVersion)
		}
		if len(r.Warnings) > 0 {
			attrs = append(attrs, "warnings", r.Warnings)
		}
		p.cfg.logger.Info("dbprobe: connection succeeded", attrs...)
		return
	}
	attrs = append(attrs, "error_kind", string(r.ErrorKind), "error", r.Message)
	p.cfg.logger.Log(context.Background(), slog.LevelWarn, "dbprobe: connection failed", attrs...)
}

// reportBuilder accumulates the report while the probe runs.
type reportBuilder struct {
	report             HealthReport
	cfg                EndpointConfig
	transportAvailable bool
}

// failStage classifies err, promoting it to Timeout when the stage context
// expired and the driver error itself did not say so.
func (b *reportBuilder) failStage(stageCtx context.Context, prefix string, err error) {
	kind := Classify(err)
	if kind == GeneralError && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		kind = Timeout
	}
	if errors.Is(stageCtx.Err(), context.Canceled) && !errors.Is(stageCtx.Err(), context.DeadlineExceeded) && kind == GeneralError {
		prefix = "probe cancelled"
	}
	b.fail(kind, prefix, err)
}

func (b *reportBuilder) fail(kind ErrorKind, prefix string, err error) {
	msg := Scrub(b.cfg, err.Error())
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	b.report.Success = false
	b.report.ErrorKind = kind
	b.report.Message = msg
	b.report.Remediation = Remediation(b.cfg.Kind, kind)
	b.report.ServerVersion = ""
	b.report.Response = ""
	b.report.Notes = nil

	transport := "available"
	if !b.transportAvailable {
		transport = "unavailable"
	}
	b.report.Debug = append(b.cfg.Summary(), Field{Name: "Transport", Value: transport})
}

func (b *reportBuilder) succeed(info ServerInfo) {
	b.report.Success = true
	b.report.ErrorKind = ""
	b.report.Message = fmt.Sprintf("connected to %s successfully", b.report.Kind)
	b.report.ServerVersion = info.Version
	b.report.Response = info.Response
}

func (b *reportBuilder) warn(msg string) {
	b.report.Warnings = append(b.report.Warnings, msg)
}

func (b *reportBuilder) note(msg string) {
	b.report.Notes = append(b.report.Notes, msg)
}
